package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/OFFIS-RIT/castnet/internal/analysis"
	"github.com/OFFIS-RIT/castnet/internal/config"
	"github.com/OFFIS-RIT/castnet/internal/storage"
	"github.com/OFFIS-RIT/castnet/internal/util"
	"github.com/OFFIS-RIT/castnet/pkg/extract"
	"github.com/OFFIS-RIT/castnet/pkg/graph"
	"github.com/OFFIS-RIT/castnet/pkg/loader"
	"github.com/OFFIS-RIT/castnet/pkg/logger"
	"github.com/OFFIS-RIT/castnet/pkg/logger/console"
	"github.com/OFFIS-RIT/castnet/pkg/pipeline"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
)

type options struct {
	in             string
	epub           string
	url            string
	s3Key          string
	out            string
	window         int
	minEdge        int
	minMentions    int
	maxCharacters  int
	mergeThreshold float64
	pretty         bool
	verbose        bool
	showVersion    bool
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("castnet", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.in, "in", "", "Plain text file to analyse (default: stdin)")
	fs.StringVar(&o.epub, "epub", "", "EPUB file to analyse")
	fs.StringVar(&o.url, "url", "", "Web page or text URL to analyse")
	fs.StringVar(&o.s3Key, "s3", "", "Object key in the configured bucket to analyse")
	fs.StringVar(&o.out, "out", "", "Write the result to this file instead of stdout")
	fs.IntVar(&o.window, "window", 0, "Sentences per co-occurrence window")
	fs.IntVar(&o.minEdge, "min-edge", 0, "Minimum edge weight")
	fs.IntVar(&o.minMentions, "min-mentions", 0, "Minimum mentions for a character")
	fs.IntVar(&o.maxCharacters, "max-characters", 0, "Maximum characters to extract")
	fs.Float64Var(&o.mergeThreshold, "merge-threshold", 0, "Name similarity needed to merge aliases (0-1]")
	fs.BoolVar(&o.pretty, "pretty", false, "Indent the JSON output")
	fs.BoolVar(&o.verbose, "v", false, "Log progress and debug output")
	fs.BoolVar(&o.showVersion, "version", false, "Show version information")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	sources := 0
	for _, s := range []string{o.in, o.epub, o.url, o.s3Key} {
		if s != "" {
			sources++
		}
	}
	if sources > 1 {
		return o, errors.New("use at most one of -in, -epub, -url and -s3")
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

// request builds the analysis request. Without a source flag the text is
// read from stdin.
func (o options) request(stdin io.Reader) (analysis.Request, error) {
	req := analysis.Request{
		Extraction: &extract.Options{
			MaxCharacters:  o.maxCharacters,
			MinMentions:    o.minMentions,
			MergeThreshold: o.mergeThreshold,
		},
		Cooccurrence: &graph.Options{
			WindowSize:    o.window,
			MinEdgeWeight: o.minEdge,
			MinMentions:   o.minMentions,
		},
	}

	switch {
	case o.in != "":
		req.Source = &analysis.Source{ID: o.in, Path: o.in, Type: loader.BookFileTypeText}
	case o.epub != "":
		req.Source = &analysis.Source{ID: o.epub, Path: o.epub, Type: loader.BookFileTypeEPUB}
	case o.url != "":
		req.Source = &analysis.Source{ID: o.url, Path: o.url, Type: loader.BookFileTypeURL}
	case o.s3Key != "":
		req.Source = &analysis.Source{ID: o.s3Key, Path: o.s3Key, Type: loader.BookFileTypeS3}
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return req, fmt.Errorf("failed to read stdin: %w", err)
		}
		req.Text = string(data)
	}
	return req, nil
}

func main() {
	util.LoadEnv()

	o, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if o.showVersion {
		fmt.Printf("castnet %s (%s)\n", version, commit)
		return
	}

	cfg := config.Load()
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.App.Debug || o.verbose,
		Format: cfg.App.LogFormat,
		Output: os.Stderr,
	})
	logger.Init(consoleLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, o, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, pipeline.ErrInvalidInput) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, o options, stdin io.Reader, stdout io.Writer) error {
	books := analysis.NewBooks(nil, "", true)
	if cfg.S3.Enabled() {
		client, err := storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return err
		}
		books = analysis.NewBooks(client, cfg.S3.Bucket, true)
	}

	svc, err := analysis.NewServiceFromConfig(cfg, books)
	if err != nil {
		return err
	}

	req, err := o.request(stdin)
	if err != nil {
		return err
	}

	result, err := svc.Analyze(ctx, req, func(p pipeline.Progress) {
		logger.Debug("[CLI] Progress", "stage", p.Stage, "percent", fmt.Sprintf("%.0f", p.Percent), "message", p.Message)
	})
	if err != nil {
		return err
	}

	out := stdout
	if o.out != "" {
		f, err := os.Create(o.out)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	if o.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}
