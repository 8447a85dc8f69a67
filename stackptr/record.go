package stackptr

import (
	"encoding/json"
	"fmt"
)

// Record is the per-file analysis output. The pointer fields are set only
// when a stack pointer was inferred; FunctionsUsingStackPointer is 0 otherwise.
type Record struct {
	Index                      *uint32
	Reads                      *uint64
	Writes                     *uint64
	Area                       *uint64
	Reason                     string
	FunctionsUsingStackPointer uint64
	FunctionsAllLocal          uint64
}

// Inferred reports whether the record names a stack pointer.
func (r *Record) Inferred() bool {
	return r.Index != nil
}

type recordJSON struct {
	Inferred                   json.RawMessage `json:"stack_pointer_inferred"`
	Reads                      *uint64         `json:"stack_pointer_reads,omitempty"`
	Writes                     *uint64         `json:"stack_pointer_writes,omitempty"`
	Area                       *uint64         `json:"stack_pointer_area,omitempty"`
	FunctionsUsingStackPointer uint64          `json:"functions_using_stack_pointer"`
	FunctionsAllLocal          uint64          `json:"functions_all_local"`
}

// MarshalJSON writes stack_pointer_inferred as either the global index or the
// failure reason string.
func (r Record) MarshalJSON() ([]byte, error) {
	var inferred []byte
	var err error
	if r.Index != nil {
		inferred, err = json.Marshal(*r.Index)
	} else {
		inferred, err = json.Marshal(r.Reason)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(recordJSON{
		Inferred:                   inferred,
		Reads:                      r.Reads,
		Writes:                     r.Writes,
		Area:                       r.Area,
		FunctionsUsingStackPointer: r.FunctionsUsingStackPointer,
		FunctionsAllLocal:          r.FunctionsAllLocal,
	})
}

// UnmarshalJSON accepts the form produced by MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record{
		Reads:                      raw.Reads,
		Writes:                     raw.Writes,
		Area:                       raw.Area,
		FunctionsUsingStackPointer: raw.FunctionsUsingStackPointer,
		FunctionsAllLocal:          raw.FunctionsAllLocal,
	}

	var idx uint32
	if err := json.Unmarshal(raw.Inferred, &idx); err == nil {
		r.Index = &idx
		return nil
	}
	if err := json.Unmarshal(raw.Inferred, &r.Reason); err != nil {
		return fmt.Errorf("stack_pointer_inferred: want index or reason, got %s", raw.Inferred)
	}
	return nil
}

func newRecord(res Result, usingFuncs, allFuncs uint64) *Record {
	rec := &Record{FunctionsAllLocal: allFuncs}
	if !res.OK {
		rec.Reason = res.Reason
		return rec
	}
	idx := res.Chosen.Index
	reads := res.Chosen.Reads
	writes := res.Chosen.Writes
	area := res.Area()
	rec.Index = &idx
	rec.Reads = &reads
	rec.Writes = &writes
	rec.Area = &area
	rec.FunctionsUsingStackPointer = usingFuncs
	return rec
}
