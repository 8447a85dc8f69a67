// Package engine wraps wazero as an optional validation gate.
//
// The stack-pointer analysis tolerates malformed code: unknown opcodes are
// skipped and truncated sections keep partial data. When a corpus should only
// count modules a real engine accepts, a Validator compiles each module with
// wazero first and rejects the ones that fail.
//
//	v := engine.NewValidator(ctx, engine.DefaultConfig())
//	defer v.Close(ctx)
//	if err := v.Validate(ctx, path, data); err != nil {
//	    // drop the file
//	}
//
// Compilation never resolves imports, so modules importing host functions
// validate without any host module.
package engine
