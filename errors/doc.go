// Package errors provides structured error types for the wasm-census pipeline.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the input file, module section, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCollect, errors.KindInvalidData).
//		File("corpus/app.wasm").
//		Section("code").
//		Detail("body %d truncated", 12).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Decode(path, cause)
//	err := errors.Timeout(errors.PhaseBatch, path, 30*time.Second)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
