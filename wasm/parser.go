package wasm

import (
	"errors"
	"fmt"
	"io"

	"github.com/wippyai/wasm-census/wasm/internal/binary"
)

// Header errors returned by NewParser. Any of them means the file is not a
// core module this package can read.
var (
	ErrInvalidMagic   = errors.New("invalid wasm magic number")
	ErrInvalidVersion = errors.New("invalid wasm version")
	ErrComponent      = errors.New("component-model binary, not a core module")
)

// SectionError reports a malformed section. Once a Parser or section reader
// returns one, it keeps returning it.
type SectionError struct {
	Err     error
	Section string
	Offset  int
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("%s section at position %d: %v", e.Section, e.Offset, e.Err)
}

func (e *SectionError) Unwrap() error {
	return e.Err
}

// Section is one payload of the section stream. Data aliases the input.
type Section struct {
	Data   []byte
	Offset int
	ID     byte
}

// Name returns a human readable section name.
func (s Section) Name() string {
	return SectionName(s.ID)
}

// SectionName returns the name of a section ID.
func SectionName(id byte) string {
	switch id {
	case SectionCustom:
		return "custom"
	case SectionType:
		return "type"
	case SectionImport:
		return "import"
	case SectionFunction:
		return "function"
	case SectionTable:
		return "table"
	case SectionMemory:
		return "memory"
	case SectionGlobal:
		return "global"
	case SectionExport:
		return "export"
	case SectionStart:
		return "start"
	case SectionElement:
		return "element"
	case SectionCode:
		return "code"
	case SectionData:
		return "data"
	case SectionDataCount:
		return "data count"
	case SectionTag:
		return "tag"
	default:
		return fmt.Sprintf("unknown(0x%02x)", id)
	}
}

// Parser yields the sections of a core module one at a time. It never
// decodes a section's contents; use the typed readers for that.
type Parser struct {
	r         *binary.Reader
	err       error
	lastOrder int
}

// NewParser checks the module header. A non-nil error means the bytes are not
// a core module at all.
func NewParser(data []byte) (*Parser, error) {
	r := binary.NewReader(data)

	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if magic != Magic {
		return nil, ErrInvalidMagic
	}

	version, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	switch version {
	case Version:
	case ComponentVersion:
		return nil, ErrComponent
	default:
		return nil, ErrInvalidVersion
	}

	return &Parser{r: r}, nil
}

// Next returns the next section, io.EOF after the last one, or a terminal
// *SectionError.
func (p *Parser) Next() (Section, error) {
	if p.err != nil {
		return Section{}, p.err
	}
	sec, err := p.next()
	if err != nil {
		p.err = err
	}
	return sec, err
}

func (p *Parser) next() (Section, error) {
	r := p.r
	if r.EOF() {
		return Section{}, io.EOF
	}

	start := r.Position()
	id, _ := r.ReadByte()

	fail := func(err error) (Section, error) {
		return Section{}, &SectionError{Section: SectionName(id), Offset: start, Err: err}
	}

	if id > SectionTag {
		return fail(fmt.Errorf("unknown section ID 0x%02x", id))
	}
	if id != SectionCustom {
		order := sectionOrder(id)
		if order <= p.lastOrder {
			return fail(errors.New("section out of order"))
		}
		p.lastOrder = order
	}

	size, err := r.ReadU32()
	if err != nil {
		return fail(fmt.Errorf("section size: %w", err))
	}
	dataStart := r.Position()
	data, err := r.ReadBytes(int(size))
	if err != nil {
		return fail(fmt.Errorf("section size %d exceeds remaining %d bytes: %w", size, r.Len(), err))
	}
	return Section{ID: id, Offset: dataStart, Data: data}, nil
}

// sectionOrder returns the canonical position of a non-custom section.
// Tag sits between memory and global; data count precedes code.
func sectionOrder(id byte) int {
	switch id {
	case SectionType:
		return 1
	case SectionImport:
		return 2
	case SectionFunction:
		return 3
	case SectionTable:
		return 4
	case SectionMemory:
		return 5
	case SectionTag:
		return 6
	case SectionGlobal:
		return 7
	case SectionExport:
		return 8
	case SectionStart:
		return 9
	case SectionElement:
		return 10
	case SectionDataCount:
		return 11
	case SectionCode:
		return 12
	case SectionData:
		return 13
	default:
		return 100
	}
}
