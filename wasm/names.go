package wasm

import (
	"fmt"

	"github.com/wippyai/wasm-census/wasm/internal/binary"
)

// NameSectionName is the custom section carrying debug names.
const NameSectionName = "name"

// nameSubsectionGlobal is the extended-name-section id for global names.
const nameSubsectionGlobal byte = 7

// GlobalNames decodes the global names subsection of a "name" custom section.
// Other subsections are skipped. A section without global names yields an
// empty map.
func (c CustomSection) GlobalNames() (map[uint32]string, error) {
	if c.Name != NameSectionName {
		return nil, fmt.Errorf("expected %q custom section, got %q", NameSectionName, c.Name)
	}
	names := make(map[uint32]string)
	r := binary.NewReader(c.Data)
	for !r.EOF() {
		id, _ := r.ReadByte()
		size, err := r.ReadU32()
		if err != nil {
			return nil, fmt.Errorf("name subsection %d size: %w", id, err)
		}
		payload, err := r.ReadBytes(int(size))
		if err != nil {
			return nil, fmt.Errorf("name subsection %d: %w", id, err)
		}
		if id != nameSubsectionGlobal {
			continue
		}

		pr := binary.NewReader(payload)
		n, err := pr.ReadU32()
		if err != nil {
			return nil, fmt.Errorf("global names count: %w", err)
		}
		for i := uint32(0); i < n; i++ {
			idx, err := pr.ReadU32()
			if err != nil {
				return nil, fmt.Errorf("global name %d: %w", i, err)
			}
			name, err := pr.ReadName()
			if err != nil {
				return nil, fmt.Errorf("global name %d: %w", i, err)
			}
			names[idx] = name
		}
	}
	return names, nil
}
