package stackptr

import (
	"context"
	stderrors "errors"
	"io"
	"strings"

	"github.com/wippyai/wasm-census/errors"
	"github.com/wippyai/wasm-census/wasm"
)

// Candidate is a mutable i32 global together with its usage tally.
type Candidate struct {
	// Name is the import field name, or the name-section name of a local
	// global when the module carries one.
	Name     string
	Index    uint32
	Reads    uint64
	Writes   uint64
	Imported bool
}

// Area is reads multiplied by writes.
func (c Candidate) Area() uint64 {
	return c.Reads * c.Writes
}

// Usage is everything the collector learned about one module.
type Usage struct {
	byIndex map[uint32]int
	names   map[uint32]string

	// Candidates in discovery order: imports first, then local globals.
	Candidates []Candidate
	// StackNamedImports lists imported i32 globals whose field name mentions
	// "stack". Informational only.
	StackNamedImports []string

	ImportedGlobals   uint32
	LocalGlobals      uint32
	Memories          uint32
	FunctionsAllLocal uint64
	// SkippedOperators counts operators that failed to decode.
	SkippedOperators uint64
	// Scanned is false when the candidate set was empty and no function body
	// was decoded.
	Scanned bool
}

// HasMemory reports whether the module imports or declares a linear memory.
func (u *Usage) HasMemory() bool {
	return u.Memories > 0
}

// Candidate returns the tally for a global index.
func (u *Usage) Candidate(idx uint32) (Candidate, bool) {
	i, ok := u.byIndex[idx]
	if !ok {
		return Candidate{}, false
	}
	return u.Candidates[i], true
}

func (u *Usage) addCandidate(c Candidate) {
	if u.byIndex == nil {
		u.byIndex = make(map[uint32]int)
	}
	if c.Name == "" {
		c.Name = u.names[c.Index]
	}
	u.byIndex[c.Index] = len(u.Candidates)
	u.Candidates = append(u.Candidates, c)
}

// Collect walks a module once and tallies global.get and global.set on every
// mutable i32 global.
//
// A header failure returns a nil Usage. A malformed section stops collection
// and returns the partial Usage together with the error; sections after the
// bad one never contribute. ctx is checked between function bodies, and a
// cancelled collection also returns the partial Usage.
func Collect(ctx context.Context, data []byte) (*Usage, error) {
	p, err := wasm.NewParser(data)
	if err != nil {
		return nil, headerError(err)
	}

	u := &Usage{}
	for {
		sec, err := p.Next()
		if err == io.EOF {
			return u, nil
		}
		if err != nil {
			return u, sectionError(errors.PhaseCollect, err)
		}

		switch sec.ID {
		case wasm.SectionImport:
			err = u.collectImports(sec)
		case wasm.SectionGlobal:
			err = u.collectGlobals(sec)
		case wasm.SectionMemory:
			err = u.collectMemories(sec)
		case wasm.SectionCode:
			err = u.collectCode(ctx, sec)
		case wasm.SectionCustom:
			u.collectNames(sec)
		}
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return u, errors.Canceled(errors.PhaseCollect, "", cerr)
			}
			return u, sectionError(errors.PhaseCollect, err)
		}
	}
}

func (u *Usage) collectImports(sec wasm.Section) error {
	ir, err := sec.Imports()
	if err != nil {
		return err
	}
	for {
		imp, err := ir.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch imp.Desc.Kind {
		case wasm.KindGlobal:
			gt := imp.Desc.Global
			idx := u.ImportedGlobals
			u.ImportedGlobals++
			if gt.ValType == wasm.ValI32 && strings.Contains(strings.ToLower(imp.Name), "stack") {
				u.StackNamedImports = append(u.StackNamedImports, imp.Name)
			}
			if gt.IsMutableI32() {
				u.addCandidate(Candidate{Index: idx, Name: imp.Name, Imported: true})
			}
		case wasm.KindMemory:
			u.Memories++
		}
	}
}

func (u *Usage) collectGlobals(sec wasm.Section) error {
	gr, err := sec.Globals()
	if err != nil {
		return err
	}
	for {
		g, err := gr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		idx := u.ImportedGlobals + u.LocalGlobals
		u.LocalGlobals++
		if g.Type.IsMutableI32() {
			u.addCandidate(Candidate{Index: idx})
		}
	}
}

func (u *Usage) collectMemories(sec wasm.Section) error {
	mr, err := sec.Memories()
	if err != nil {
		return err
	}
	u.Memories += mr.Count()
	return nil
}

// collectNames labels local candidates from the name section. Names are
// informational, so a malformed name section is ignored.
func (u *Usage) collectNames(sec wasm.Section) {
	cs, err := sec.Custom()
	if err != nil || cs.Name != wasm.NameSectionName {
		return
	}
	names, err := cs.GlobalNames()
	if err != nil {
		return
	}
	u.names = names
	for i := range u.Candidates {
		if u.Candidates[i].Name == "" {
			u.Candidates[i].Name = names[u.Candidates[i].Index]
		}
	}
}

func (u *Usage) collectCode(ctx context.Context, sec wasm.Section) error {
	cr, err := sec.Bodies()
	if err != nil {
		return err
	}
	scan := len(u.Candidates) > 0
	u.Scanned = u.Scanned || scan
	for {
		body, err := cr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		u.FunctionsAllLocal++
		if !scan {
			continue
		}
		u.SkippedOperators += walkOperators(body, func(op wasm.Operator) bool {
			idx, write, ok := op.GlobalAccess()
			if !ok {
				return true
			}
			i, tracked := u.byIndex[idx]
			if !tracked {
				return true
			}
			if write {
				u.Candidates[i].Writes++
			} else {
				u.Candidates[i].Reads++
			}
			return true
		})
	}
}

// walkOperators feeds each decodable operator of body to visit until visit
// returns false. It returns the number of operators that failed to decode.
func walkOperators(body wasm.FuncBody, visit func(wasm.Operator) bool) uint64 {
	var skipped uint64
	or := body.Operators()
	for {
		op, err := or.Next()
		if err == io.EOF {
			return skipped
		}
		if err != nil {
			skipped++
			continue
		}
		if !visit(op) {
			return skipped
		}
	}
}

// headerError classifies a file that is not a core module. Components are
// well formed but out of scope, so they are reported as unsupported.
func headerError(err error) error {
	if stderrors.Is(err, wasm.ErrComponent) {
		return errors.Unsupported(errors.PhaseDecode, "", "component-model binary", err)
	}
	return errors.Decode("", err)
}

// sectionError turns a decoder error into a structured one that names the
// failing section.
func sectionError(phase errors.Phase, err error) error {
	b := errors.New(phase, errors.KindInvalidData).Cause(err).Detail("section-level decode failure")
	var se *wasm.SectionError
	if stderrors.As(err, &se) {
		b.Section(se.Section)
	}
	return b.Build()
}
