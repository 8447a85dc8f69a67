package wasm

import (
	"errors"
	"fmt"
	"io"

	"github.com/wippyai/wasm-census/wasm/internal/binary"
)

// Operator is one decoded instruction. Only the opcode, the sub-opcode of
// prefixed instructions, and the first index immediate are retained.
type Operator struct {
	// Offset is the absolute file position of the opcode byte.
	Offset int
	// Sub is the LEB128 sub-opcode for 0xFB..0xFE prefixed instructions.
	Sub uint32
	// Index is the first index immediate (global, local, function, label...),
	// when the instruction has one.
	Index  uint32
	Opcode byte
}

// GlobalAccess reports whether the operator reads (global.get) or writes
// (global.set) a global, and which one.
func (o Operator) GlobalAccess() (idx uint32, write bool, ok bool) {
	switch o.Opcode {
	case OpGlobalGet:
		return o.Index, false, true
	case OpGlobalSet:
		return o.Index, true, true
	}
	return 0, false, false
}

// IsPrefixed reports whether the opcode carries a sub-opcode.
func (o Operator) IsPrefixed() bool {
	return o.Opcode >= OpPrefixGC && o.Opcode <= OpPrefixAtomic
}

func (o Operator) String() string {
	if o.IsPrefixed() {
		return fmt.Sprintf("0x%02x 0x%02x", o.Opcode, o.Sub)
	}
	return fmt.Sprintf("0x%02x", o.Opcode)
}

// OpcodeError reports an opcode this decoder does not know. The reader has
// already moved past the opcode (and sub-opcode), so the caller may keep
// reading.
type OpcodeError struct {
	Offset   int
	Sub      uint32
	Opcode   byte
	Prefixed bool
}

func (e *OpcodeError) Error() string {
	if e.Prefixed {
		return fmt.Sprintf("unknown opcode 0x%02x 0x%02x at position %d", e.Opcode, e.Sub, e.Offset)
	}
	return fmt.Sprintf("unknown opcode 0x%02x at position %d", e.Opcode, e.Offset)
}

// ErrTruncatedOperator is wrapped by errors from an immediate that runs past
// the end of the body.
var ErrTruncatedOperator = errors.New("truncated operator")

// OperatorReader decodes instructions one at a time from a function body or
// an init expression.
type OperatorReader struct {
	r *binary.Reader
}

// NewOperatorReader creates a reader over raw instruction bytes.
func NewOperatorReader(code []byte) *OperatorReader {
	return NewOperatorReaderAt(code, 0)
}

// NewOperatorReaderAt creates a reader whose offsets are relative to base.
func NewOperatorReaderAt(code []byte, base int) *OperatorReader {
	return &OperatorReader{r: binary.NewReaderAt(code, base)}
}

// EOF reports whether all instruction bytes have been consumed.
func (or *OperatorReader) EOF() bool {
	return or.r.EOF()
}

// Position returns the absolute position of the next opcode.
func (or *OperatorReader) Position() int {
	return or.r.Position()
}

// Next decodes the next instruction. It returns io.EOF once the stream is
// exhausted. An *OpcodeError leaves the reader usable; any other error
// exhausts it.
func (or *OperatorReader) Next() (Operator, error) {
	r := or.r
	if r.EOF() {
		return Operator{}, io.EOF
	}
	op := Operator{Offset: r.Position()}
	b, _ := r.ReadByte()
	op.Opcode = b

	shape := opcodeShapes[b]
	var err error
	switch shape {
	case immUnknown:
		return op, &OpcodeError{Offset: op.Offset, Opcode: b}
	case immPrefix:
		op.Sub, err = r.ReadU32()
		if err == nil {
			err = readPrefixed(r, &op)
		}
	default:
		err = readImmediate(r, shape, &op)
	}

	if err != nil {
		var oe *OpcodeError
		if errors.As(err, &oe) {
			return op, err
		}
		r.ReadRemaining()
		return op, fmt.Errorf("%s at position %d: %w: %w", op, op.Offset, ErrTruncatedOperator, err)
	}
	return op, nil
}

// skipExpr consumes a constant expression up to and including its end opcode,
// returning the raw bytes. Nested blocks are not valid in constant
// expressions, so the first end terminates it.
func skipExpr(r *binary.Reader) ([]byte, error) {
	start := r.Position()
	rest := r.Rest()
	or := NewOperatorReaderAt(rest, start)
	for {
		op, err := or.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("constant expression at position %d: %w", start, io.ErrUnexpectedEOF)
		}
		if err != nil {
			return nil, fmt.Errorf("constant expression: %w", err)
		}
		if op.Opcode == OpEnd {
			n := or.Position() - start
			return rest[:n], r.Skip(n)
		}
	}
}

type immShape uint8

const (
	immUnknown immShape = iota
	immNone
	immBlockType
	immIndex
	immIndexPair
	immMemArg
	immI32
	immI64
	immF32
	immF64
	immBrTable
	immHeapType
	immSelectTypes
	immTryTable
	immPrefix
)

var opcodeShapes = buildOpcodeShapes()

func buildOpcodeShapes() [256]immShape {
	var t [256]immShape
	set := func(s immShape, ops ...byte) {
		for _, op := range ops {
			t[op] = s
		}
	}
	setRange := func(s immShape, lo, hi byte) {
		for op := int(lo); op <= int(hi); op++ {
			t[op] = s
		}
	}

	set(immNone, OpUnreachable, OpNop, OpElse, OpEnd, OpReturn, OpDrop, OpSelect,
		OpCatchAll, OpThrowRef, OpRefIsNull, OpRefAsNonNull, OpRefEq)
	set(immBlockType, OpBlock, OpLoop, OpIf, OpTry)
	set(immIndex, OpCatch, OpThrow, OpRethrow, OpDelegate, OpBr, OpBrIf,
		OpCall, OpReturnCall, OpCallRef, OpReturnCallRef,
		OpLocalGet, OpLocalSet, OpLocalTee, OpGlobalGet, OpGlobalSet,
		OpTableGet, OpTableSet, OpMemorySize, OpMemoryGrow,
		OpRefFunc, OpBrOnNull, OpBrOnNonNull)
	set(immIndexPair, OpCallIndirect, OpReturnCallIndirect)
	set(immBrTable, OpBrTable)
	set(immSelectTypes, OpSelectType)
	set(immTryTable, OpTryTable)
	set(immHeapType, OpRefNull)
	setRange(immMemArg, OpI32Load, OpI64Store32)
	set(immI32, OpI32Const)
	set(immI64, OpI64Const)
	set(immF32, OpF32Const)
	set(immF64, OpF64Const)
	// Comparison, arithmetic, conversion and sign-extension ops.
	setRange(immNone, OpI32Eqz, OpI64Extend32S)
	set(immPrefix, OpPrefixGC, OpPrefixMisc, OpPrefixSIMD, OpPrefixAtomic)
	return t
}

func readImmediate(r *binary.Reader, shape immShape, op *Operator) error {
	var err error
	switch shape {
	case immNone:
	case immBlockType:
		err = skipBlockType(r)
	case immHeapType:
		_, err = r.ReadS64()
	case immIndex:
		op.Index, err = r.ReadU32()
	case immIndexPair:
		if op.Index, err = r.ReadU32(); err == nil {
			_, err = r.ReadU32()
		}
	case immMemArg:
		err = skipMemArg(r)
	case immI32:
		_, err = r.ReadS32()
	case immI64:
		_, err = r.ReadS64()
	case immF32:
		err = r.Skip(4)
	case immF64:
		err = r.Skip(8)
	case immBrTable:
		err = skipBrTable(r)
	case immSelectTypes:
		err = skipSelectTypes(r)
	case immTryTable:
		err = skipTryTable(r)
	}
	return err
}

// skipBlockType consumes a block type: empty, a value type, a typed
// reference with its heap type, or an s33 type index.
func skipBlockType(r *binary.Reader) error {
	if rest := r.Rest(); len(rest) > 0 {
		if vt := ValType(rest[0]); vt == ValRefNull || vt == ValRef {
			_, _, err := readValType(r)
			return err
		}
	}
	_, err := r.ReadS64()
	return err
}

// memArgMultiMemBit marks a memarg whose alignment field is followed by an
// explicit memory index.
const memArgMultiMemBit = 0x40

func skipMemArg(r *binary.Reader) error {
	align, err := r.ReadU32()
	if err != nil {
		return err
	}
	if align&memArgMultiMemBit != 0 {
		if _, err := r.ReadU32(); err != nil {
			return err
		}
	}
	_, err = r.ReadU64()
	return err
}

func skipBrTable(r *binary.Reader) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	// n labels plus the default
	for i := uint64(0); i <= uint64(n); i++ {
		if _, err := r.ReadU32(); err != nil {
			return err
		}
	}
	return nil
}

func skipSelectTypes(r *binary.Reader) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		if _, _, err := readValType(r); err != nil {
			return err
		}
	}
	return nil
}

func skipTryTable(r *binary.Reader) error {
	if err := skipBlockType(r); err != nil {
		return err
	}
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		kind, err := r.ReadByte()
		if err != nil {
			return io.ErrUnexpectedEOF
		}
		if kind == CatchKindCatch || kind == CatchKindCatchRef {
			if _, err := r.ReadU32(); err != nil {
				return err
			}
		}
		if _, err := r.ReadU32(); err != nil {
			return err
		}
	}
	return nil
}

func readPrefixed(r *binary.Reader, op *Operator) error {
	switch op.Opcode {
	case OpPrefixMisc:
		return readMisc(r, op)
	case OpPrefixSIMD:
		return readSIMD(r, op)
	case OpPrefixAtomic:
		return readAtomic(r, op)
	default:
		return readGC(r, op)
	}
}

func unknownPrefixed(op *Operator) error {
	return &OpcodeError{Offset: op.Offset, Opcode: op.Opcode, Sub: op.Sub, Prefixed: true}
}

// readIndices reads n u32 immediates, keeping the first in op.Index.
func readIndices(r *binary.Reader, op *Operator, n int) error {
	for i := 0; i < n; i++ {
		v, err := r.ReadU32()
		if err != nil {
			return err
		}
		if i == 0 {
			op.Index = v
		}
	}
	return nil
}

func readMisc(r *binary.Reader, op *Operator) error {
	switch sub := op.Sub; {
	case sub <= 0x07: // saturating truncations
		return nil
	case sub == 0x08, sub == 0x0A, sub == 0x0C, sub == 0x0E: // memory.init, memory.copy, table.init, table.copy
		return readIndices(r, op, 2)
	case sub <= 0x12: // data.drop, memory.fill, elem.drop, table.grow/size/fill, memory.discard
		return readIndices(r, op, 1)
	default:
		return unknownPrefixed(op)
	}
}

func readSIMD(r *binary.Reader, op *Operator) error {
	switch sub := op.Sub; {
	case sub <= 0x0B, sub == 0x5C, sub == 0x5D: // loads, store, zero-extending loads
		return skipMemArg(r)
	case sub == 0x0C, sub == 0x0D: // v128.const, i8x16.shuffle
		return r.Skip(16)
	case sub >= 0x15 && sub <= 0x22: // extract/replace lane
		return r.Skip(1)
	case sub >= 0x54 && sub <= 0x5B: // load/store lane
		if err := skipMemArg(r); err != nil {
			return err
		}
		return r.Skip(1)
	case sub <= 0x113: // remaining SIMD and relaxed SIMD ops
		return nil
	default:
		return unknownPrefixed(op)
	}
}

func readAtomic(r *binary.Reader, op *Operator) error {
	switch sub := op.Sub; {
	case sub == 0x03: // atomic.fence
		return r.Skip(1)
	case sub <= 0x4E:
		return skipMemArg(r)
	default:
		return unknownPrefixed(op)
	}
}

func readGC(r *binary.Reader, op *Operator) error {
	switch op.Sub {
	case 0x00, 0x01, 0x06, 0x07, 0x0B, 0x0C, 0x0D, 0x0E, 0x10: // struct.new*, array.new*, array.get*/set/fill
		return readIndices(r, op, 1)
	case 0x02, 0x03, 0x04, 0x05, 0x08, 0x09, 0x0A, 0x11, 0x12, 0x13: // struct.get*/set, array.new_fixed/data/elem, array.copy/init_*
		return readIndices(r, op, 2)
	case 0x14, 0x15, 0x16, 0x17: // ref.test, ref.cast
		_, err := r.ReadS64()
		return err
	case 0x18, 0x19: // br_on_cast, br_on_cast_fail
		if err := r.Skip(1); err != nil {
			return err
		}
		if err := readIndices(r, op, 1); err != nil {
			return err
		}
		if _, err := r.ReadS64(); err != nil {
			return err
		}
		_, err := r.ReadS64()
		return err
	case 0x0F, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E: // array.len, conversions, i31
		return nil
	default:
		return unknownPrefixed(op)
	}
}

// readValType reads a value type, including the heap type of typed references.
func readValType(r *binary.Reader) (ValType, *RefType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, nil, io.ErrUnexpectedEOF
	}
	vt := ValType(b)
	if vt != ValRefNull && vt != ValRef {
		return vt, nil, nil
	}
	ht, err := r.ReadS64()
	if err != nil {
		return 0, nil, err
	}
	return vt, &RefType{Nullable: vt == ValRefNull, HeapType: ht}, nil
}
