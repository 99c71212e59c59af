// Package content is the content-attribute store queried for content://
// locators.
//
// Each record maps a locator to its MIME type, stored orientation in degrees
// and the path of the file that backs it. Lookups go through the Store
// interface so the decode pipeline can be driven by any attribute source;
// SQLiteStore is the default implementation.
package content
