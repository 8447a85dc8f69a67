package stackptr_test

import (
	"github.com/wippyai/wasm-census/wasm"
)

func ptrTo[T any](v T) *T { return &v }

// reads emits n global.get/drop pairs on idx.
func reads(idx byte, n int) []byte {
	var out []byte
	for i := 0; i < n; i++ {
		out = append(out, wasm.OpGlobalGet, idx, wasm.OpDrop)
	}
	return out
}

// writes emits n i32.const/global.set pairs on idx.
func writes(idx byte, n int) []byte {
	var out []byte
	for i := 0; i < n; i++ {
		out = append(out, wasm.OpI32Const, 0x00, wasm.OpGlobalSet, idx)
	}
	return out
}

func body(parts ...[]byte) wasm.FuncBody {
	var code []byte
	for _, p := range parts {
		code = append(code, p...)
	}
	return wasm.FuncBody{Code: append(code, wasm.OpEnd)}
}

func mutI32() wasm.Global {
	return wasm.Global{
		Type: wasm.GlobalType{ValType: wasm.ValI32, Mutable: true},
		Init: []byte{wasm.OpI32Const, 0x00, wasm.OpEnd},
	}
}

func constI32() wasm.Global {
	return wasm.Global{
		Type: wasm.GlobalType{ValType: wasm.ValI32},
		Init: []byte{wasm.OpI32Const, 0x00, wasm.OpEnd},
	}
}

func mutI64() wasm.Global {
	return wasm.Global{
		Type: wasm.GlobalType{ValType: wasm.ValI64, Mutable: true},
		Init: []byte{wasm.OpI64Const, 0x00, wasm.OpEnd},
	}
}

func memoryImport() wasm.Import {
	return wasm.Import{Module: "env", Name: "memory", Desc: wasm.ImportDesc{
		Kind:   wasm.KindMemory,
		Memory: &wasm.MemoryType{Limits: wasm.Limits{Min: 1}},
	}}
}

func globalImport(name string, vt wasm.ValType, mutable bool) wasm.Import {
	return wasm.Import{Module: "env", Name: name, Desc: wasm.ImportDesc{
		Kind:   wasm.KindGlobal,
		Global: &wasm.GlobalType{ValType: vt, Mutable: mutable},
	}}
}

// module builds a module with one memory and the given globals and bodies.
func module(globals []wasm.Global, bodies ...wasm.FuncBody) *wasm.Module {
	m := &wasm.Module{
		Types:    []wasm.FuncType{{}},
		Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: 1}}},
		Globals:  globals,
		Code:     bodies,
	}
	for range bodies {
		m.Funcs = append(m.Funcs, 0)
	}
	return m
}

// stackModule has one mutable i32 global read 10 times and written 8 times
// across 3 of its 6 functions.
func stackModule() *wasm.Module {
	return module([]wasm.Global{mutI32()},
		body(reads(0, 4), writes(0, 3)),
		body(reads(0, 3), writes(0, 3)),
		body(reads(0, 3), writes(0, 2)),
		body(),
		body([]byte{wasm.OpNop}),
		body([]byte{wasm.OpI32Const, 0x01, wasm.OpDrop}),
	)
}
