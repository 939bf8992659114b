// Command instagrab resolves an Instagram post URL from the terminal and can
// probe each media URL through the same disguised fetch the server uses.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/iconidentify/instagrab/internal/config"
	"github.com/iconidentify/instagrab/internal/domain"
	"github.com/iconidentify/instagrab/internal/downloader"
	"github.com/iconidentify/instagrab/internal/resolver"
	"github.com/iconidentify/instagrab/pkg/instagram"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type options struct {
	configPath string
	probe      bool
	retries    int
	jsonOut    bool
	verbose    bool
	postURL    string
}

// postResolver is satisfied by *resolver.Resolver.
type postResolver interface {
	Resolve(ctx context.Context, postURL string) (*domain.ResolutionResult, error)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, term.IsTerminal(int(os.Stdout.Fd()))))
}

func run(args []string, stdout, stderr io.Writer, stdoutIsTTY bool) int {
	opts, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, "instagrab:", err)
		return exitUsage
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return exitFailure
	}

	r := resolver.New(instagram.NewClient(cfg.Instagram), logger)
	var fetcher downloader.Fetcher
	if opts.probe {
		fetcher = downloader.NewMediaFetcher(cfg.Proxy, logger)
	}

	report, err := execute(context.Background(), r, fetcher, opts)
	if err != nil {
		fmt.Fprintln(stderr, "instagrab:", err)
		return exitFailure
	}

	if opts.jsonOut || !stdoutIsTTY {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintln(stderr, "instagrab:", err)
			return exitFailure
		}
		return exitOK
	}

	printHuman(stdout, report)
	return exitOK
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("instagrab", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to config file")
	fs.BoolVar(&opts.probe, "probe", false, "Fetch each media URL through the proxy fetcher")
	fs.IntVar(&opts.retries, "retries", 2, "Extra attempts for probes that time out")
	fs.BoolVar(&opts.jsonOut, "json", false, "Print JSON even when stdout is a terminal")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose logging on stderr")
	showVersion := fs.Bool("version", false, "Show version and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: instagrab [-config path] [-probe] [-retries n] [-json] <post-url>\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if *showVersion {
		fmt.Fprintf(stderr, "instagrab %s (built %s)\n", Version, BuildTime)
		return opts, flag.ErrHelp
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return opts, fmt.Errorf("expected exactly one post URL, got %d", fs.NArg())
	}
	if opts.retries < 0 {
		return opts, fmt.Errorf("-retries must be non-negative, got %d", opts.retries)
	}

	opts.postURL = fs.Arg(0)
	return opts, nil
}

// Report is the CLI's machine-readable output.
type Report struct {
	Shortcode string       `json:"shortcode"`
	Items     []ReportItem `json:"items"`
}

// ReportItem is one media item, with its probe outcome when probing was requested.
type ReportItem struct {
	SourceURL string       `json:"source_url"`
	IsVideo   bool         `json:"is_video"`
	Probe     *ProbeResult `json:"probe,omitempty"`
}

// ProbeResult describes a single fetch outcome.
type ProbeResult struct {
	OK          bool   `json:"ok"`
	ContentType string `json:"content_type,omitempty"`
	Bytes       int    `json:"bytes,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Error       string `json:"error,omitempty"`
}

// execute resolves opts.postURL and, when fetcher is non-nil, probes every item in order.
func execute(ctx context.Context, r postResolver, fetcher downloader.Fetcher, opts options) (*Report, error) {
	result, err := r.Resolve(ctx, opts.postURL)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Shortcode: result.Shortcode.String(),
		Items:     make([]ReportItem, 0, len(result.Items)),
	}

	retryCfg := downloader.DefaultRetryConfig()
	retryCfg.MaxAttempts = opts.retries + 1
	retryCfg.InitialDelay = 500 * time.Millisecond

	for _, item := range result.Items {
		ri := ReportItem{SourceURL: item.SourceURL, IsVideo: item.IsVideo}
		if fetcher != nil {
			ri.Probe = probe(ctx, fetcher, retryCfg, item.SourceURL)
		}
		report.Items = append(report.Items, ri)
	}
	return report, nil
}

func probe(ctx context.Context, fetcher downloader.Fetcher, cfg downloader.RetryConfig, url string) *ProbeResult {
	payload, err := downloader.FetchWithRetry(ctx, fetcher, cfg, url)
	if err != nil {
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			return &ProbeResult{Kind: string(fe.Kind), Error: fe.Message}
		}
		return &ProbeResult{Kind: string(domain.FailureUnknown), Error: err.Error()}
	}
	return &ProbeResult{
		OK:          true,
		ContentType: payload.ContentType,
		Bytes:       payload.ByteLength(),
	}
}

func printHuman(w io.Writer, report *Report) {
	fmt.Fprintf(w, "%s: %d media\n", report.Shortcode, len(report.Items))
	for i, item := range report.Items {
		kind := "image"
		if item.IsVideo {
			kind = "video"
		}
		fmt.Fprintf(w, "[%d] %s %s\n", i+1, kind, item.SourceURL)

		if item.Probe == nil {
			continue
		}
		if item.Probe.OK {
			fmt.Fprintf(w, "    ok %s %s\n", item.Probe.ContentType, formatBytes(item.Probe.Bytes))
		} else {
			fmt.Fprintf(w, "    failed %s: %s\n", item.Probe.Kind, item.Probe.Error)
		}
	}
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
