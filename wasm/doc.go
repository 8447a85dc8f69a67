// Package wasm provides a streaming reader for WebAssembly core modules.
//
// The reader never builds a full module tree. A Parser walks the section
// stream, and typed readers decode only the sections a caller asks for:
//
//	p, err := wasm.NewParser(data)
//	if err != nil {
//	    return err // bad magic, bad version, or a component binary
//	}
//	for {
//	    sec, err := p.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    if sec.ID == wasm.SectionCode {
//	        bodies, _ := sec.Bodies()
//	        ...
//	    }
//	}
//
// # Instructions
//
// OperatorReader decodes function bodies one instruction at a time. It knows
// the immediate layout of the core, SIMD, threads, bulk-memory, tail-call,
// exception-handling and GC instruction sets. An unknown opcode yields an
// *OpcodeError and the reader stays usable; a truncated immediate wraps
// ErrTruncatedOperator and exhausts the reader.
//
// # Encoding
//
// Module.Encode writes a module in binary format. It exists to build test
// fixtures and covers only the sections the reader consumes plus a few
// neighbours.
package wasm
