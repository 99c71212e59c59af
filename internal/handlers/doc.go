// Package handlers provides the HTTP API of the decode service.
//
// It includes handlers for:
//   - Decoding a locator into a JPEG thumbnail (GET /api/decode)
//   - Registering content records for content:// locators (POST /api/content)
//   - Health, liveness and version endpoints
package handlers
