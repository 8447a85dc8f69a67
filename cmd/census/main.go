package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/wasm-census/batch"
	"github.com/wippyai/wasm-census/engine"
	"github.com/wippyai/wasm-census/errors"
	"github.com/wippyai/wasm-census/stackptr"
)

type config struct {
	output    string
	progress  string
	logFormat string
	inputs    []string
	workers   int
	timeout   time.Duration
	minReads  uint64
	minWrites uint64
	validate  bool
	pretty    bool
	verbose   bool
}

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (*config, error) {
	cfg := &config{}
	fs.StringVar(&cfg.output, "o", "", "Write JSON to this file instead of stdout")
	fs.IntVar(&cfg.workers, "workers", 0, "Files analyzed concurrently (0 = number of CPUs)")
	fs.DurationVar(&cfg.timeout, "timeout", 0, "Per-file analysis timeout (0 = none)")
	fs.Uint64Var(&cfg.minReads, "min-reads", stackptr.DefaultMinReads, "Reads a candidate must exceed")
	fs.Uint64Var(&cfg.minWrites, "min-writes", stackptr.DefaultMinWrites, "Writes a candidate must exceed")
	fs.BoolVar(&cfg.validate, "validate", false, "Drop modules wazero fails to compile")
	fs.BoolVar(&cfg.pretty, "pretty", true, "Indent JSON output")
	fs.StringVar(&cfg.progress, "progress", "auto", "Progress display: auto, on, off")
	fs.BoolVar(&cfg.verbose, "v", false, "Debug logging")
	fs.StringVar(&cfg.logFormat, "log-format", "console", "Log format: console, json")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: census [flags] <file.wasm|dir>...")
		fmt.Fprintln(fs.Output(), "Infers the shadow stack pointer global of each module and prints one JSON object keyed by file stem.")
		fmt.Fprintln(fs.Output())
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.inputs = fs.Args()
	if len(cfg.inputs) == 0 {
		fs.Usage()
		return nil, errors.InvalidInput(errors.PhaseBatch, "no input files")
	}
	switch cfg.progress {
	case "auto", "on", "off":
	default:
		return nil, errors.InvalidInput(errors.PhaseBatch, fmt.Sprintf("unknown -progress mode %q", cfg.progress))
	}
	switch cfg.logFormat {
	case "console", "json":
	default:
		return nil, errors.InvalidInput(errors.PhaseBatch, fmt.Sprintf("unknown -log-format %q", cfg.logFormat))
	}
	return cfg, nil
}

// showProgress resolves the -progress mode against whether stderr is a terminal.
func showProgress(mode string, stderrIsTerminal bool) bool {
	switch mode {
	case "on":
		return true
	case "off":
		return false
	default:
		return stderrIsTerminal
	}
}

func newLogger(format string, verbose, quiet bool) (*zap.Logger, error) {
	var zcfg zap.Config
	if format == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.DisableStacktrace = true
	}
	switch {
	case verbose:
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case quiet:
		// the progress display owns stderr; only problems get through
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}

func run(cfg *config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tty := showProgress(cfg.progress, term.IsTerminal(int(os.Stderr.Fd())))

	log, err := newLogger(cfg.logFormat, cfg.verbose, tty)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	stackptr.SetLogger(log.Named("stackptr"))
	batch.SetLogger(log.Named("batch"))
	engine.SetLogger(log.Named("engine"))

	paths, err := batch.Expand(cfg.inputs)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.InvalidInput(errors.PhaseBatch, "no .wasm files found")
	}

	opts := batch.Options{
		Workers:        cfg.workers,
		PerFileTimeout: cfg.timeout,
		Thresholds:     &stackptr.Thresholds{MinReads: cfg.minReads, MinWrites: cfg.minWrites},
	}
	var validator *engine.Validator
	if cfg.validate {
		validator = engine.NewValidator(ctx, engine.DefaultConfig())
		defer validator.Close(context.Background())
		opts.Validator = validator
	}

	var res *batch.Results
	if tty {
		res, err = runWithProgress(ctx, paths, opts)
	} else {
		res, err = batch.Run(ctx, paths, opts)
	}
	if res == nil {
		return err
	}

	s := res.Summary()
	log.Info("census complete",
		zap.Int("records", s.Records),
		zap.Int("inferred", s.Inferred),
		zap.Int("dropped", s.Dropped),
		zap.Int("timeouts", s.Timeouts))
	if validator != nil {
		checked, rejected := validator.Stats()
		log.Info("validation", zap.Uint64("checked", checked), zap.Uint64("rejected", rejected))
	}

	// an interrupted run still reports what it finished
	if werr := writeResults(res, cfg.output, cfg.pretty); werr != nil {
		return werr
	}
	return err
}

func writeResults(res *batch.Results, path string, pretty bool) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(errors.PhaseBatch, errors.KindIO, err, "create output")
		}
		defer f.Close()
		w = f
	}
	return res.WriteJSON(w, pretty)
}
