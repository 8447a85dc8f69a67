package stackptr

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-census/errors"
)

// Analyzer runs collection, classification and the usage scan over one
// module at a time. It holds no per-file state and is safe for concurrent use.
type Analyzer struct {
	log        *zap.Logger
	thresholds Thresholds
}

// NewAnalyzer creates an analyzer. A nil logger falls back to the package
// logger.
func NewAnalyzer(t Thresholds, log *zap.Logger) *Analyzer {
	if log == nil {
		log = Logger()
	}
	return &Analyzer{thresholds: t, log: log}
}

// Thresholds returns the bounds the analyzer classifies with.
func (a *Analyzer) Thresholds() Thresholds {
	return a.thresholds
}

// Analyze produces the record for one module. The name is used for logging
// and error context only.
//
// An error is returned only when the module cannot be read at all, or when
// ctx ends before the analysis finishes. A malformed section is logged and the
// record is built from what was collected before it.
func (a *Analyzer) Analyze(ctx context.Context, name string, data []byte) (*Record, error) {
	log := a.log.With(zap.String("file", name))

	usage, err := Collect(ctx, data)
	if usage == nil {
		return nil, withFile(err, name)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Canceled(errors.PhaseCollect, name, err)
	}
	if err != nil {
		log.Warn("section decode failed, keeping partial data", zap.Error(err))
	}
	if len(usage.StackNamedImports) > 0 {
		log.Debug("stack-named i32 imports", zap.Strings("names", usage.StackNamedImports))
	}
	if usage.SkippedOperators > 0 {
		log.Debug("skipped undecodable operators", zap.Uint64("count", usage.SkippedOperators))
	}

	res := Classify(usage.HasMemory(), usage.Candidates, a.thresholds)
	if !res.OK {
		log.Debug("no stack pointer inferred",
			zap.String("reason", res.Reason),
			zap.Int("candidates", len(usage.Candidates)),
			zap.Uint64("functions", usage.FunctionsAllLocal))
		return newRecord(res, 0, usage.FunctionsAllLocal), nil
	}

	using, err := CountFunctionsUsing(ctx, data, res.Chosen.Index)
	if err := ctx.Err(); err != nil {
		return nil, errors.Canceled(errors.PhaseScan, name, err)
	}
	if err != nil {
		log.Debug("usage scan ended early", zap.Error(err))
	}

	log.Debug("stack pointer inferred",
		zap.Uint32("index", res.Chosen.Index),
		zap.String("name", res.Chosen.Name),
		zap.Bool("imported", res.Chosen.Imported),
		zap.Uint64("reads", res.Chosen.Reads),
		zap.Uint64("writes", res.Chosen.Writes),
		zap.Uint64("functions_using", using))
	return newRecord(res, using, usage.FunctionsAllLocal), nil
}

func withFile(err error, name string) error {
	if e, ok := err.(*errors.Error); ok && e.File == "" {
		e.File = name
	}
	return err
}
