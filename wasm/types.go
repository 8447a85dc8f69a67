package wasm

// ValType represents a WebAssembly value type.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValV128:
		return "v128"
	case ValFuncRef:
		return "funcref"
	case ValExtern:
		return "externref"
	case ValRefNull:
		return "ref null"
	case ValRef:
		return "ref"
	default:
		return "unknown"
	}
}

// RefType is a typed reference with a heap type encoded as s33.
type RefType struct {
	Nullable bool
	HeapType int64
}

// Limits describes size constraints for tables and memories.
type Limits struct {
	Max      *uint64
	Min      uint64
	Shared   bool
	Memory64 bool
}

// MemoryType describes a linear memory with size limits.
type MemoryType struct {
	Limits Limits
	// PageSizeLog2 is set only by the custom-page-sizes proposal.
	PageSizeLog2 *uint32
}

// TableType describes a table with element type and size limits.
type TableType struct {
	Ref      *RefType
	Limits   Limits
	Init     []byte
	ElemType ValType
}

// GlobalType describes a global variable's type and mutability.
type GlobalType struct {
	Ref     *RefType
	ValType ValType
	Mutable bool
}

// IsMutableI32 reports whether the global is a mutable 32-bit integer.
func (g GlobalType) IsMutableI32() bool {
	return g.Mutable && g.ValType == ValI32
}

// TagType describes an exception handling tag type.
type TagType struct {
	Attribute byte
	TypeIdx   uint32
}

// Import represents an imported function, table, memory, global, or tag.
type Import struct {
	Desc   ImportDesc
	Module string
	Name   string
}

// ImportDesc describes an imported item.
// Kind uses KindFunc, KindTable, KindMemory, KindGlobal, or KindTag constants.
type ImportDesc struct {
	Table   *TableType
	Memory  *MemoryType
	Global  *GlobalType
	Tag     *TagType
	TypeIdx uint32
	Kind    byte
}

// Global is a locally declared global with its raw init expression.
type Global struct {
	Type GlobalType
	Init []byte
}

// Export describes an exported item.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// LocalEntry represents a group of local variables with the same type.
type LocalEntry struct {
	Ref     *RefType
	Count   uint32
	ValType ValType
}

// FuncBody is one code-section entry.
// Code holds the instruction bytes including the final end opcode.
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte
	// Offset is the absolute file position of Code[0].
	Offset int
}

// Operators returns a reader over the body's instruction stream.
func (b FuncBody) Operators() *OperatorReader {
	return NewOperatorReaderAt(b.Code, b.Offset)
}

// CustomSection holds a named custom section's data.
type CustomSection struct {
	Name string
	Data []byte
}

// FuncType represents a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// DataSegment is an active (memory 0) or passive data segment.
type DataSegment struct {
	Offset  []byte
	Init    []byte
	Passive bool
}

// Module describes a core module for encoding. The analysis path never
// materializes one; it streams sections through Parser instead.
type Module struct {
	Types          []FuncType
	Imports        []Import
	Funcs          []uint32
	Tables         []TableType
	Memories       []MemoryType
	Globals        []Global
	Exports        []Export
	Start          *uint32
	Code           []FuncBody
	Data           []DataSegment
	CustomSections []CustomSection
}
