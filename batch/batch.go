package batch

import (
	"context"
	stderrors "errors"
	"os"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-census/errors"
	"github.com/wippyai/wasm-census/stackptr"
)

// Validator gates files before analysis. engine.Validator satisfies it.
type Validator interface {
	Validate(ctx context.Context, name string, data []byte) error
}

// Options configures a batch run.
type Options struct {
	// Validator, when set, drops every file it rejects.
	Validator Validator
	// OnProgress is called from the collecting goroutine after each file.
	OnProgress func(done, total int, path string)
	// Logger overrides the package logger. Per-file analysis logs go to
	// stackptr.Logger().
	Logger *zap.Logger
	// ReadFile loads one input. Defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)
	// Thresholds for classification. Nil means the defaults.
	Thresholds *stackptr.Thresholds
	// Workers is the number of files analyzed concurrently.
	// 0 means runtime.NumCPU().
	Workers int
	// PerFileTimeout abandons a file whose validation and analysis run
	// longer. 0 disables it.
	PerFileTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Logger == nil {
		o.Logger = Logger()
	}
	if o.ReadFile == nil {
		o.ReadFile = os.ReadFile
	}
	if o.Thresholds == nil {
		t := stackptr.DefaultThresholds()
		o.Thresholds = &t
	}
	return o
}

type job struct {
	path  string
	order int
}

type outcome struct {
	rec *stackptr.Record
	err error
	job
}

type worker struct {
	analyzer *stackptr.Analyzer
	opts     Options
}

// Run analyzes every path and merges the records keyed by file stem.
//
// Files that cannot be read, decoded, validated or analyzed in time are
// dropped and listed in Results.Dropped. Cancelling ctx stops dispatching new
// files; the records gathered so far are returned with the cancellation error.
func Run(ctx context.Context, paths []string, opts Options) (*Results, error) {
	opts = opts.withDefaults()
	log := opts.Logger
	w := &worker{
		analyzer: stackptr.NewAnalyzer(*opts.Thresholds, stackptr.Logger()),
		opts:     opts,
	}

	jobs := make(chan job)
	outcomes := make(chan outcome)

	workers := min(opts.Workers, max(len(paths), 1))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				outcomes <- w.process(ctx, j)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, p := range paths {
			select {
			case jobs <- job{path: p, order: i}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	log.Info("batch started", zap.Int("files", len(paths)), zap.Int("workers", workers))

	res := newResults()
	done := 0
	for o := range outcomes {
		done++
		res.add(o, log)
		if opts.OnProgress != nil {
			opts.OnProgress(done, len(paths), o.path)
		}
	}

	log.Info("batch finished",
		zap.Int("records", len(res.Records)),
		zap.Int("dropped", len(res.Dropped)))

	if err := ctx.Err(); err != nil {
		return res, errors.Canceled(errors.PhaseBatch, "", err)
	}
	return res, nil
}

func (w *worker) process(ctx context.Context, j job) outcome {
	out := outcome{job: j}
	if err := ctx.Err(); err != nil {
		out.err = errors.Canceled(errors.PhaseBatch, j.path, err)
		return out
	}

	data, err := w.opts.ReadFile(j.path)
	if err != nil {
		out.err = errors.Load(j.path, err)
		return out
	}

	out.rec, out.err = w.analyze(ctx, j.path, data)
	return out
}

func (w *worker) check(ctx context.Context, path string, data []byte) (*stackptr.Record, error) {
	if w.opts.Validator != nil {
		if err := w.opts.Validator.Validate(ctx, path, data); err != nil {
			return nil, err
		}
	}
	return w.analyzer.Analyze(ctx, path, data)
}

// analyze validates and analyzes one file, abandoning it when PerFileTimeout
// elapses. Abandoned work notices the cancelled context between passes and
// exits on its own.
func (w *worker) analyze(ctx context.Context, path string, data []byte) (*stackptr.Record, error) {
	limit := w.opts.PerFileTimeout
	if limit <= 0 {
		return w.check(ctx, path, data)
	}

	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	type result struct {
		rec *stackptr.Record
		err error
	}
	ch := make(chan result, 1)
	go func() {
		rec, err := w.check(ctx, path, data)
		ch <- result{rec, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.Timeout(errors.PhaseBatch, path, limit)
		}
		return r.rec, r.err
	case <-ctx.Done():
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.Timeout(errors.PhaseBatch, path, limit)
		}
		return nil, errors.Canceled(errors.PhaseBatch, path, ctx.Err())
	}
}
