package batch

import (
	"encoding/json"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-census/errors"
	"github.com/wippyai/wasm-census/stackptr"
)

// Dropped is an input left out of the output.
type Dropped struct {
	Err  error
	Path string
}

// Results holds the merged output of a run.
type Results struct {
	// Records is keyed by file stem.
	Records map[string]*stackptr.Record
	Dropped []Dropped

	// source tracks which input order produced each record.
	source map[string]job
}

// Summary counts the outcomes of a run.
type Summary struct {
	Records  int
	Inferred int
	Dropped  int
	Timeouts int
}

func newResults() *Results {
	return &Results{
		Records: make(map[string]*stackptr.Record),
		source:  make(map[string]job),
	}
}

// add merges one outcome. It is only called from the collecting goroutine.
// For duplicate stems the input listed later wins, whatever order the
// workers finish in.
func (r *Results) add(o outcome, log *zap.Logger) {
	if o.err != nil {
		r.Dropped = append(r.Dropped, Dropped{Path: o.path, Err: o.err})
		log.Warn("file dropped", zap.String("file", o.path), zap.Error(o.err))
		return
	}

	stem := Stem(o.path)
	if prev, ok := r.source[stem]; ok {
		kept, lost := o.job, prev
		if prev.order > o.order {
			kept, lost = prev, o.job
		}
		log.Warn("duplicate file stem, keeping later input",
			zap.String("stem", stem),
			zap.String("kept", kept.path),
			zap.String("replaced", lost.path))
		if prev.order > o.order {
			return
		}
	}
	r.source[stem] = o.job
	r.Records[stem] = o.rec
}

// Summary returns outcome counts.
func (r *Results) Summary() Summary {
	s := Summary{Records: len(r.Records), Dropped: len(r.Dropped)}
	for _, rec := range r.Records {
		if rec.Inferred() {
			s.Inferred++
		}
	}
	for _, d := range r.Dropped {
		if errors.HasKind(d.Err, errors.KindTimeout) {
			s.Timeouts++
		}
	}
	return s
}

// WriteJSON writes all records as one JSON object with sorted keys.
func (r *Results) WriteJSON(w io.Writer, pretty bool) error {
	var data []byte
	var err error
	if pretty {
		data, err = json.MarshalIndent(r.Records, "", "  ")
	} else {
		data, err = json.Marshal(r.Records)
	}
	if err != nil {
		return errors.Wrap(errors.PhaseBatch, errors.KindInvalidData, err, "encode results")
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(errors.PhaseBatch, errors.KindIO, err, "write results")
	}
	return nil
}

// Stem returns the file name without its directory and final extension.
// A leading-dot name with no other dot is returned whole.
func Stem(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext == base {
		return base
	}
	return base[:len(base)-len(ext)]
}
