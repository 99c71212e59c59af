package startup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"media-decoder/internal/infocache"
	"media-decoder/internal/logging"
	"media-decoder/internal/motion"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	Port           string
	MetricsPort    string
	MetricsEnabled bool

	DatabasePath   string
	CacheCapacity  int
	OverlayPath    string
	OverlayStacked bool

	FFmpegPath    string
	FrameOffset   time.Duration
	ThumbnailKind motion.Kind
	VipsEnabled   bool

	DecodeWorkers   int
	LogHealthChecks bool

	// Volumes maps metric volume labels to mount paths.
	Volumes map[string]string
	// MediaRoots are the directories decoded files must live under. Empty
	// allows any readable path.
	MediaRoots []string
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	config := &Config{
		Port:            getEnv("PORT", "8080"),
		MetricsPort:     getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),
		DatabasePath:    getEnv("DATABASE_PATH", "/database/content.db"),
		CacheCapacity:   getEnvInt("CACHE_CAPACITY", infocache.DefaultCapacity),
		OverlayPath:     getEnv("OVERLAY_PATH", ""),
		OverlayStacked:  getEnvBool("OVERLAY_STACKED", false),
		FFmpegPath:      getEnv("FFMPEG_PATH", "ffmpeg"),
		FrameOffset:     getEnvDuration("FRAME_OFFSET", motion.DefaultFrameOffset),
		VipsEnabled:     getEnvBool("VIPS_ENABLED", true),
		DecodeWorkers:   getEnvInt("DECODE_WORKERS", 0),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", false),
		Volumes:         parseVolumes(getEnv("MEDIA_VOLUMES", "")),
		MediaRoots:      parseList(getEnv("MEDIA_ROOTS", "/media")),
	}

	kindStr := getEnv("THUMBNAIL_KIND", "mini")
	kind, err := motion.ParseKind(kindStr)
	if err != nil {
		logging.Warn("  Invalid THUMBNAIL_KIND %q, using default: mini", kindStr)
	}
	config.ThumbnailKind = kind

	if config.CacheCapacity <= 0 {
		logging.Warn("  CACHE_CAPACITY must be positive, using default: %d", infocache.DefaultCapacity)
		config.CacheCapacity = infocache.DefaultCapacity
	}
	if config.FrameOffset < 0 {
		logging.Warn("  FRAME_OFFSET must not be negative, using default: %v", motion.DefaultFrameOffset)
		config.FrameOffset = motion.DefaultFrameOffset
	}

	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  DATABASE_PATH:       %s", config.DatabasePath)
	logging.Info("  CACHE_CAPACITY:      %d", config.CacheCapacity)
	logging.Info("  OVERLAY_PATH:        %s", valueOrNone(config.OverlayPath))
	logging.Info("  OVERLAY_STACKED:     %v", config.OverlayStacked)
	logging.Info("  FFMPEG_PATH:         %s", config.FFmpegPath)
	logging.Info("  FRAME_OFFSET:        %v", config.FrameOffset)
	logging.Info("  THUMBNAIL_KIND:      %s", config.ThumbnailKind)
	logging.Info("  VIPS_ENABLED:        %v", config.VipsEnabled)
	logging.Info("  DECODE_WORKERS:      %s", workersString(config.DecodeWorkers))
	logging.Info("  LOG_HEALTH_CHECKS:   %v", config.LogHealthChecks)
	logging.Info("  MEDIA_VOLUMES:       %d configured", len(config.Volumes))
	logging.Info("  MEDIA_ROOTS:         %s", strings.Join(config.MediaRoots, ", "))
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
	logging.Info("  LOG_FORMAT:          %s", getEnv("LOG_FORMAT", "console"))

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	dbPath, err := filepath.Abs(config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	config.DatabasePath = dbPath
	logging.Info("  Database path (absolute): %s", dbPath)

	databaseDir := filepath.Dir(dbPath)
	if err := ensureDirectory(databaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}

	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for content store): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	if config.OverlayPath != "" {
		if _, err := os.Stat(config.OverlayPath); err != nil {
			logging.Warn("  Overlay image unavailable, motion overlays disabled: %v", err)
			config.OverlayPath = ""
		}
	}

	return config, nil
}

// parseVolumes parses "label=/path,label2=/other" into a label to path map.
func parseVolumes(s string) map[string]string {
	volumes := make(map[string]string)
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, path, ok := strings.Cut(entry, "=")
		name, path = strings.TrimSpace(name), strings.TrimSpace(path)
		if !ok || name == "" || path == "" {
			logging.Warn("  Ignoring malformed MEDIA_VOLUMES entry %q", entry)
			continue
		}
		volumes[name] = path
	}
	return volumes
}

// parseList splits a comma separated list, dropping blank entries.
func parseList(s string) []string {
	var out []string
	for _, entry := range strings.Split(s, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

func valueOrNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func workersString(n int) string {
	if n <= 0 {
		return "auto"
	}
	return strconv.Itoa(n)
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogContentStoreInit logs content store initialization
func LogContentStoreInit(duration time.Duration, records int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("CONTENT STORE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Content store opened in %v (%d records)", duration, records)
}

// LogPipelineInit logs decode pipeline collaborators and checks FFmpeg
func LogPipelineInit(config *Config, vipsAvailable, overlayLoaded bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DECODE PIPELINE INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	ffmpegAvailable := true
	if err := checkFFmpeg(config.FFmpegPath); err != nil {
		ffmpegAvailable = false
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Motion thumbnails will rely on embedded pictures only")
	} else {
		logging.Info("  [OK] FFmpeg is available")
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Content store:  ENABLED (required)")
	logging.Info("    Frame sampling: %s", enabledString(ffmpegAvailable))
	logging.Info("    libvips:        %s", enabledString(vipsAvailable))
	logging.Info("    Motion overlay: %s", enabledString(overlayLoaded))
	logging.Info("    Metrics:        %s", enabledString(config.MetricsEnabled))
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes at debug level
func LogHTTPRoutes(router *mux.Router) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if !logging.IsDebugEnabled() {
		return
	}

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}
	logging.Debug("  Registered routes (%d total):", len(routes))

	groups := make(map[string][]RouteInfo)
	for _, route := range routes {
		prefix := getRouteGroup(route.Path)
		groups[prefix] = append(groups[prefix], route)
	}

	groupKeys := make([]string, 0, len(groups))
	for k := range groups {
		groupKeys = append(groupKeys, k)
	}
	sort.Strings(groupKeys)

	for _, group := range groupKeys {
		if group != "" {
			logging.Debug("  [%s]", group)
		} else {
			logging.Debug("  [root]")
		}
		for _, route := range groups[group] {
			logging.Debug("    %-6s %s", route.Method, route.Path)
		}
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("  Decode API:      http://0.0.0.0:%s/api/decode", config.Port)
	if config.MetricsEnabled {
		logging.Info("  Metrics:         http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("  Metrics:         DISABLED")
	}
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
  media-decoder: thumbnail decode service
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func checkFFmpeg(binary string) error {
	path, err := exec.LookPath(binary)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", binary)
	}
	logging.Debug("  FFmpeg path: %s", path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg version: %w", err)
	}

	if line, _, _ := strings.Cut(string(output), "\n"); line != "" {
		logging.Debug("  FFmpeg version: %s", strings.TrimSpace(line))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
