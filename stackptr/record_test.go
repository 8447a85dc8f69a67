package stackptr_test

import (
	"encoding/json"
	"testing"

	"github.com/wippyai/wasm-census/stackptr"
)

func TestRecordJSON(t *testing.T) {
	tests := []struct {
		name string
		rec  stackptr.Record
		want string
	}{
		{
			name: "inferred",
			rec: stackptr.Record{
				Index:                      ptrTo(uint32(0)),
				Reads:                      ptrTo(uint64(10)),
				Writes:                     ptrTo(uint64(8)),
				Area:                       ptrTo(uint64(80)),
				FunctionsUsingStackPointer: 3,
				FunctionsAllLocal:          6,
			},
			want: `{"stack_pointer_inferred":0,"stack_pointer_reads":10,"stack_pointer_writes":8,"stack_pointer_area":80,"functions_using_stack_pointer":3,"functions_all_local":6}`,
		},
		{
			name: "failed",
			rec:  stackptr.Record{Reason: stackptr.ReasonNoMemory, FunctionsAllLocal: 2},
			want: `{"stack_pointer_inferred":"no local or imported memory","functions_using_stack_pointer":0,"functions_all_local":2}`,
		},
		{
			name: "no functions",
			rec:  stackptr.Record{Reason: stackptr.ReasonNoCandidate},
			want: `{"stack_pointer_inferred":"no mutable i32 global","functions_using_stack_pointer":0,"functions_all_local":0}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := json.Marshal(tt.rec)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(out) != tt.want {
				t.Errorf("got  %s\nwant %s", out, tt.want)
			}

			var back stackptr.Record
			if err := json.Unmarshal(out, &back); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if back.Inferred() != tt.rec.Inferred() || back.Reason != tt.rec.Reason {
				t.Errorf("decoded %+v", back)
			}
		})
	}
}

func TestRecordUnmarshalRejectsOtherTypes(t *testing.T) {
	var r stackptr.Record
	if err := json.Unmarshal([]byte(`{"stack_pointer_inferred":true,"functions_all_local":0}`), &r); err == nil {
		t.Error("expected error for boolean stack_pointer_inferred")
	}
}
