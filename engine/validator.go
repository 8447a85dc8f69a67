package engine

import (
	"context"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-census/errors"
)

// Config holds configuration for validator creation
type Config struct {
	// MemoryLimitPages caps declared memories in pages (64KB each).
	// 0 means the wazero default.
	MemoryLimitPages uint32

	// EnableThreads accepts modules using the threads proposal
	// (shared memory and atomics).
	EnableThreads bool

	// Interpreter compiles with wazero's interpreter instead of the native
	// compiler. Validation is identical; compilation is cheaper.
	Interpreter bool
}

// DefaultConfig returns the configuration used by the CLI.
func DefaultConfig() Config {
	return Config{EnableThreads: true, Interpreter: true}
}

// Validator checks that modules compile under wazero. A single Validator is
// safe for concurrent use.
type Validator struct {
	runtime  wazero.Runtime
	checked  atomic.Uint64
	rejected atomic.Uint64
}

// NewValidator creates a validator backed by a fresh wazero runtime.
func NewValidator(ctx context.Context, cfg Config) *Validator {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.Interpreter {
		runtimeCfg = wazero.NewRuntimeConfigInterpreter()
	}
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	if cfg.EnableThreads {
		runtimeCfg = runtimeCfg.WithCoreFeatures(api.CoreFeaturesV2 | experimental.CoreFeaturesThreads)
	}
	// imports are never resolved, so custom sections are irrelevant
	runtimeCfg = runtimeCfg.WithCustomSections(false)

	return &Validator{runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg)}
}

// Validate compiles the module and discards the result. Rejections are
// returned as validate-phase errors wrapping wazero's message.
func (v *Validator) Validate(ctx context.Context, name string, data []byte) error {
	v.checked.Add(1)
	compiled, err := v.runtime.CompileModule(ctx, data)
	if err != nil {
		v.rejected.Add(1)
		Logger().Debug("module rejected", zap.String("file", name), zap.Error(err))
		return errors.New(errors.PhaseValidate, errors.KindInvalidData).
			File(name).
			Detail("wazero rejected module").
			Cause(err).
			Build()
	}
	return compiled.Close(ctx)
}

// Stats returns how many modules were checked and how many were rejected.
func (v *Validator) Stats() (checked, rejected uint64) {
	return v.checked.Load(), v.rejected.Load()
}

// Close releases the wazero runtime.
func (v *Validator) Close(ctx context.Context) error {
	return v.runtime.Close(ctx)
}
