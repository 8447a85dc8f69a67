package stackptr

import (
	"context"
	"io"

	"github.com/wippyai/wasm-census/errors"
	"github.com/wippyai/wasm-census/wasm"
)

// CountFunctionsUsing re-reads the code section and counts function bodies
// that read or write the global at idx at least once. Each body stops being
// scanned at its first hit.
//
// A malformed section or a cancelled ctx ends the scan; the count so far is
// returned along with the error.
func CountFunctionsUsing(ctx context.Context, data []byte, idx uint32) (uint64, error) {
	p, err := wasm.NewParser(data)
	if err != nil {
		return 0, headerError(err)
	}

	var n uint64
	for {
		sec, err := p.Next()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, sectionError(errors.PhaseScan, err)
		}
		if sec.ID != wasm.SectionCode {
			continue
		}

		cr, err := sec.Bodies()
		if err != nil {
			return n, sectionError(errors.PhaseScan, err)
		}
		for {
			body, err := cr.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return n, sectionError(errors.PhaseScan, err)
			}
			if err := ctx.Err(); err != nil {
				return n, errors.Canceled(errors.PhaseScan, "", err)
			}
			if bodyUses(body, idx) {
				n++
			}
		}
	}
}

func bodyUses(body wasm.FuncBody, idx uint32) bool {
	found := false
	walkOperators(body, func(op wasm.Operator) bool {
		if g, _, ok := op.GlobalAccess(); ok && g == idx {
			found = true
			return false
		}
		return true
	})
	return found
}
