// Package census infers the shadow stack pointer of compiled WebAssembly
// modules and reports it across a corpus.
//
// Toolchains that target linear memory keep a stack in memory and track its
// top in one mutable i32 global. The global is never marked as such, so it is
// inferred from how often functions read and write it.
//
// # Architecture Overview
//
// The module is organized into several packages with distinct responsibilities:
//
//	census/              Overview documentation
//	├── wasm/            Streaming section and operator readers, test encoder
//	├── stackptr/        Usage collection, classification and the JSON record
//	├── batch/           Worker pool, stem-keyed results, input expansion
//	├── engine/          Optional wazero compile check
//	├── errors/          Structured error types for debugging
//	└── cmd/census/      Command-line tool with progress display
//
// # Quick Start
//
// Analyze one module:
//
//	a := stackptr.NewAnalyzer(stackptr.DefaultThresholds(), nil)
//	rec, err := a.Analyze(ctx, "app.wasm", data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if rec.Inferred() {
//	    fmt.Println("stack pointer is global", *rec.Index)
//	}
//
// Analyze a directory tree and print the report:
//
//	paths, _ := batch.Expand([]string{"corpus/"})
//	res, err := batch.Run(ctx, paths, batch.Options{Workers: 8})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res.WriteJSON(os.Stdout, true)
//
// # Heuristic
//
// Every mutable i32 global is a candidate, imported ones first. A candidate
// qualifies when it is read more than three times and written more than three
// times; among qualifying candidates the one with the largest reads times
// writes wins, the earliest on ties. Modules without any memory never have a
// stack pointer.
//
// # Thread Safety
//
// Analyzer and engine.Validator are safe for concurrent use. Results is owned
// by the goroutine that called batch.Run.
package census
