package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"media-decoder/internal/app"
	"media-decoder/internal/decode"
	"media-decoder/internal/locator"
	"media-decoder/internal/logging"
	"media-decoder/internal/mediatypes"
	"media-decoder/internal/pipeline"
	"media-decoder/internal/startup"
	"media-decoder/internal/workers"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// maxWorkers caps the automatic worker count.
const maxWorkers = 16

// Decoder runs decode requests.
type Decoder interface {
	Decode(ctx context.Context, req decode.Request) (*pipeline.Result, error)
}

type options struct {
	outDir    string
	target    decode.TargetSize
	orient    bool
	quality   int
	workers   int
	locations []string
}

type jobResult struct {
	Locator string
	Key     string
	Output  string
	Tier    string
	Err     error
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}
	// the caller names the files; MEDIA_ROOTS only guards the server
	config.MediaRoots = nil

	opts.locations, err = expandLocations(opts.locations)
	if err != nil {
		startup.LogFatal("Cannot read input: %v", err)
	}
	if len(opts.locations) == 0 {
		startup.LogFatal("No media files found in the given directories")
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		startup.LogFatal("Cannot create output directory %s: %v", opts.outDir, err)
	}

	a, err := app.Build(ctx, config)
	if err != nil {
		startup.LogFatal("Failed to initialize decode pipeline: %v", err)
	}

	n := opts.workers
	if n <= 0 {
		n = config.DecodeWorkers
	}
	if n <= 0 {
		n = workers.ForMixed(maxWorkers)
	}

	start := time.Now()
	results := decodeAll(ctx, a.Pipeline, opts, n)
	failed := report(results)

	logging.Info("Decoded %d of %d locators in %v with %d workers",
		len(results)-failed, len(results), time.Since(start).Round(time.Millisecond), n)

	if err := a.Close(); err != nil {
		logging.Warn("Failed to close content store: %v", err)
	}
	logging.Sync()

	if failed > 0 {
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("thumbdecode", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts options
	var noOrientation bool
	fs.StringVar(&opts.outDir, "out", ".", "output directory")
	fs.IntVar(&opts.target.Width, "w", 0, "target width")
	fs.IntVar(&opts.target.Height, "h", 0, "target height")
	fs.BoolVar(&noOrientation, "no-orientation", false, "skip orientation metadata")
	fs.IntVar(&opts.quality, "quality", 85, "JPEG quality")
	fs.IntVar(&opts.workers, "workers", 0, "concurrent decodes")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	opts.orient = !noOrientation
	opts.locations = fs.Args()

	switch {
	case len(opts.locations) == 0:
		return opts, fmt.Errorf("no locators given")
	case opts.target.Width < 0 || opts.target.Height < 0:
		return opts, fmt.Errorf("target size must not be negative")
	case opts.quality < 1 || opts.quality > 100:
		return opts, fmt.Errorf("quality must be between 1 and 100")
	}
	return opts, nil
}

// expandLocations replaces directory arguments with the media files below
// them, in walk order. Locators and plain files pass through unchanged.
func expandLocations(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		if locator.Of(arg) != locator.SchemeUnknown {
			out = append(out, arg)
			continue
		}
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			out = append(out, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				logging.Warn("Error accessing path %s: %v", p, err)
				return nil
			}
			if p != arg && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && mediatypes.FileTypeForPath(p) != mediatypes.FileTypeOther {
				out = append(out, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
	}
	return out, nil
}

func decodeAll(ctx context.Context, decoder Decoder, opts options, n int) []jobResult {
	results := make([]jobResult, len(opts.locations))
	for i, loc := range opts.locations {
		results[i] = jobResult{Locator: locator.FromPath(loc), Err: context.Canceled}
	}

	workers.Run(ctx, n, opts.locations, func(ctx context.Context, i int, loc string) {
		results[i] = decodeOne(ctx, decoder, locator.FromPath(loc), opts)
	})
	return results
}

func decodeOne(ctx context.Context, decoder Decoder, loc string, opts options) jobResult {
	res := jobResult{Locator: loc, Key: uuid.NewString()}

	result, err := decoder.Decode(ctx, decode.Request{
		Locator:             loc,
		Target:              opts.target,
		ConsiderOrientation: opts.orient,
		ImageKey:            res.Key,
	})
	if err != nil {
		res.Err = err
		return res
	}
	if result.Motion {
		res.Tier = result.Tier.String()
	}

	res.Output = filepath.Join(opts.outDir, outputName(loc, res.Key))
	if err := imaging.Save(result.Image, res.Output, imaging.JPEGQuality(opts.quality)); err != nil {
		res.Err = fmt.Errorf("failed to write %s: %w", res.Output, err)
	}
	return res
}

// outputName derives "<source base>-<first 8 key chars>.jpg".
func outputName(loc, key string) string {
	base := path.Base(strings.TrimRight(loc, "/"))
	base = strings.TrimSuffix(base, path.Ext(base))

	var b strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" || strings.Trim(name, "_") == "" {
		name = "image"
	}

	short := key
	if len(short) > 8 {
		short = short[:8]
	}
	return name + "-" + short + ".jpg"
}

// report prints one line per result and returns the number of failures.
func report(results []jobResult) int {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAIL %s [%s]: %v\n", r.Locator, r.Key, r.Err)
			continue
		}
		if r.Tier != "" {
			fmt.Printf("OK   %s [%s] -> %s (motion, %s)\n", r.Locator, r.Key, r.Output, r.Tier)
		} else {
			fmt.Printf("OK   %s [%s] -> %s\n", r.Locator, r.Key, r.Output)
		}
	}
	return failed
}

func printUsage() {
	fmt.Println("Media Decoder batch thumbnailer")
	fmt.Println("")
	fmt.Println("Usage: thumbdecode [flags] <locator|path>...")
	fmt.Println("")
	fmt.Println("Flags:")
	fmt.Println("  -out DIR         Output directory (default: .)")
	fmt.Println("  -w N, -h N       Target bounding box (0 = unconstrained)")
	fmt.Println("  -no-orientation  Skip orientation metadata lookups")
	fmt.Println("  -quality N       JPEG quality 1-100 (default: 85)")
	fmt.Println("  -workers N       Concurrent decodes")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Println("  DATABASE_PATH, FFMPEG_PATH, DECODE_WORKERS, LOG_LEVEL (see the server)")
}
