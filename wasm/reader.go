package wasm

import (
	"fmt"
	"io"

	"github.com/wippyai/wasm-census/wasm/internal/binary"
)

// SectionReader iterates the vector of entries in a section.
type SectionReader[T any] struct {
	r       *binary.Reader
	decode  func(*binary.Reader) (T, error)
	err     error
	name    string
	count   uint32
	read    uint32
	started int
}

// Specialised readers for the sections the analysis consumes.
type (
	ImportReader = SectionReader[Import]
	GlobalReader = SectionReader[Global]
	MemoryReader = SectionReader[MemoryType]
	CodeReader   = SectionReader[FuncBody]
)

func newSectionReader[T any](s Section, want byte, decode func(*binary.Reader) (T, error)) (*SectionReader[T], error) {
	name := SectionName(want)
	if s.ID != want {
		return nil, fmt.Errorf("expected %s section, got %s", name, s.Name())
	}
	r := binary.NewReaderAt(s.Data, s.Offset)
	count, err := r.ReadU32()
	if err != nil {
		return nil, &SectionError{Section: name, Offset: s.Offset, Err: fmt.Errorf("entry count: %w", err)}
	}
	return &SectionReader[T]{r: r, decode: decode, name: name, count: count, started: s.Offset}, nil
}

// Imports returns a reader over an import section.
func (s Section) Imports() (*ImportReader, error) {
	return newSectionReader(s, SectionImport, readImport)
}

// Globals returns a reader over a global section.
func (s Section) Globals() (*GlobalReader, error) {
	return newSectionReader(s, SectionGlobal, readGlobal)
}

// Memories returns a reader over a memory section.
func (s Section) Memories() (*MemoryReader, error) {
	return newSectionReader(s, SectionMemory, readMemoryType)
}

// Bodies returns a reader over a code section.
func (s Section) Bodies() (*CodeReader, error) {
	return newSectionReader(s, SectionCode, readFuncBody)
}

// Custom decodes a custom section's name and payload.
func (s Section) Custom() (CustomSection, error) {
	if s.ID != SectionCustom {
		return CustomSection{}, fmt.Errorf("expected custom section, got %s", s.Name())
	}
	r := binary.NewReaderAt(s.Data, s.Offset)
	name, err := r.ReadName()
	if err != nil {
		return CustomSection{}, &SectionError{Section: "custom", Offset: s.Offset, Err: err}
	}
	return CustomSection{Name: name, Data: r.ReadRemaining()}, nil
}

// Count returns the number of entries the section declares.
func (sr *SectionReader[T]) Count() uint32 {
	return sr.count
}

// Next decodes the next entry. It returns io.EOF after Count entries, or a
// sticky *SectionError.
func (sr *SectionReader[T]) Next() (T, error) {
	var zero T
	if sr.err != nil {
		return zero, sr.err
	}
	if sr.read >= sr.count {
		if !sr.r.EOF() {
			sr.err = &SectionError{Section: sr.name, Offset: sr.started,
				Err: fmt.Errorf("%d trailing bytes after %d entries", sr.r.Len(), sr.count)}
			return zero, sr.err
		}
		return zero, io.EOF
	}
	pos := sr.r.Position()
	v, err := sr.decode(sr.r)
	if err != nil {
		sr.err = &SectionError{Section: sr.name, Offset: sr.started,
			Err: fmt.Errorf("entry %d at position %d: %w", sr.read, pos, err)}
		return zero, sr.err
	}
	sr.read++
	return v, nil
}

func readImport(r *binary.Reader) (Import, error) {
	module, err := r.ReadName()
	if err != nil {
		return Import{}, err
	}
	name, err := r.ReadName()
	if err != nil {
		return Import{}, err
	}
	kind, err := r.ReadByte()
	if err != nil {
		return Import{}, io.ErrUnexpectedEOF
	}

	imp := Import{Module: module, Name: name, Desc: ImportDesc{Kind: kind}}
	switch kind {
	case KindFunc:
		imp.Desc.TypeIdx, err = r.ReadU32()
	case KindTable:
		var t TableType
		t, err = readTableEntryType(r)
		imp.Desc.Table = &t
	case KindMemory:
		var m MemoryType
		m, err = readMemoryType(r)
		imp.Desc.Memory = &m
	case KindGlobal:
		var g GlobalType
		g, err = readGlobalType(r)
		imp.Desc.Global = &g
	case KindTag:
		var t TagType
		t, err = readTagType(r)
		imp.Desc.Tag = &t
	default:
		return Import{}, fmt.Errorf("unknown import kind 0x%02x", kind)
	}
	if err != nil {
		return Import{}, err
	}
	return imp, nil
}

func readGlobalType(r *binary.Reader) (GlobalType, error) {
	vt, ref, err := readValType(r)
	if err != nil {
		return GlobalType{}, err
	}
	mut, err := r.ReadByte()
	if err != nil {
		return GlobalType{}, io.ErrUnexpectedEOF
	}
	if mut > 1 {
		return GlobalType{}, fmt.Errorf("invalid global mutability 0x%02x", mut)
	}
	return GlobalType{ValType: vt, Ref: ref, Mutable: mut == 1}, nil
}

func readGlobal(r *binary.Reader) (Global, error) {
	gt, err := readGlobalType(r)
	if err != nil {
		return Global{}, err
	}
	init, err := skipExpr(r)
	if err != nil {
		return Global{}, err
	}
	return Global{Type: gt, Init: init}, nil
}

func readLimits(r *binary.Reader) (Limits, *uint32, error) {
	flags, err := r.ReadByte()
	if err != nil {
		return Limits{}, nil, io.ErrUnexpectedEOF
	}
	if flags&^(LimitsHasMax|LimitsShared|LimitsMemory64|LimitsCustomPage) != 0 {
		return Limits{}, nil, fmt.Errorf("invalid limits flags 0x%02x", flags)
	}
	l := Limits{Shared: flags&LimitsShared != 0, Memory64: flags&LimitsMemory64 != 0}

	read := r.ReadU64
	if !l.Memory64 {
		read = func() (uint64, error) {
			v, err := r.ReadU32()
			return uint64(v), err
		}
	}
	if l.Min, err = read(); err != nil {
		return Limits{}, nil, err
	}
	if flags&LimitsHasMax != 0 {
		maxVal, err := read()
		if err != nil {
			return Limits{}, nil, err
		}
		l.Max = &maxVal
	}
	var pageLog2 *uint32
	if flags&LimitsCustomPage != 0 {
		v, err := r.ReadU32()
		if err != nil {
			return Limits{}, nil, err
		}
		pageLog2 = &v
	}
	return l, pageLog2, nil
}

func readMemoryType(r *binary.Reader) (MemoryType, error) {
	l, pageLog2, err := readLimits(r)
	if err != nil {
		return MemoryType{}, err
	}
	return MemoryType{Limits: l, PageSizeLog2: pageLog2}, nil
}

// readTableEntryType reads a table type as it appears in imports.
func readTableEntryType(r *binary.Reader) (TableType, error) {
	vt, ref, err := readValType(r)
	if err != nil {
		return TableType{}, err
	}
	l, _, err := readLimits(r)
	if err != nil {
		return TableType{}, err
	}
	return TableType{ElemType: vt, Ref: ref, Limits: l}, nil
}

func readTagType(r *binary.Reader) (TagType, error) {
	attr, err := r.ReadByte()
	if err != nil {
		return TagType{}, io.ErrUnexpectedEOF
	}
	idx, err := r.ReadU32()
	if err != nil {
		return TagType{}, err
	}
	return TagType{Attribute: attr, TypeIdx: idx}, nil
}

func readFuncBody(r *binary.Reader) (FuncBody, error) {
	size, err := r.ReadU32()
	if err != nil {
		return FuncBody{}, err
	}
	base := r.Position()
	data, err := r.ReadBytes(int(size))
	if err != nil {
		return FuncBody{}, fmt.Errorf("body size %d: %w", size, err)
	}

	br := binary.NewReaderAt(data, base)
	groups, err := br.ReadU32()
	if err != nil {
		return FuncBody{}, fmt.Errorf("local count: %w", err)
	}
	var locals []LocalEntry
	for i := uint32(0); i < groups; i++ {
		n, err := br.ReadU32()
		if err != nil {
			return FuncBody{}, err
		}
		vt, ref, err := readValType(br)
		if err != nil {
			return FuncBody{}, err
		}
		locals = append(locals, LocalEntry{Count: n, ValType: vt, Ref: ref})
	}

	offset := br.Position()
	return FuncBody{Locals: locals, Code: br.ReadRemaining(), Offset: offset}, nil
}
