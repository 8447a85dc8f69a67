package stackptr_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/wasm-census/errors"
	"github.com/wippyai/wasm-census/stackptr"
	"github.com/wippyai/wasm-census/wasm"
)

func newObserved(t *testing.T) (*stackptr.Analyzer, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return stackptr.NewAnalyzer(stackptr.DefaultThresholds(), zap.New(core)), logs
}

func TestAnalyzeInferred(t *testing.T) {
	a, _ := newObserved(t)
	rec, err := a.Analyze(context.Background(), "app", stackModule().Encode())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !rec.Inferred() || *rec.Index != 0 {
		t.Fatalf("expected global 0, got %+v", rec)
	}
	if *rec.Reads != 10 || *rec.Writes != 8 || *rec.Area != 80 {
		t.Errorf("reads=%d writes=%d area=%d", *rec.Reads, *rec.Writes, *rec.Area)
	}
	if rec.FunctionsUsingStackPointer != 3 {
		t.Errorf("functions using: got %d, want 3", rec.FunctionsUsingStackPointer)
	}
	if rec.FunctionsAllLocal != 6 {
		t.Errorf("functions all: got %d, want 6", rec.FunctionsAllLocal)
	}
}

func TestAnalyzeUnusedGlobal(t *testing.T) {
	m := &wasm.Module{
		Types:   []wasm.FuncType{{}},
		Imports: []wasm.Import{memoryImport()},
		Funcs:   []uint32{0, 0, 0, 0, 0},
		Globals: []wasm.Global{mutI32()},
		Code:    []wasm.FuncBody{body(), body(), body([]byte{wasm.OpNop}), body(), body()},
	}

	a, _ := newObserved(t)
	rec, err := a.Analyze(context.Background(), "unused", m.Encode())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rec.Inferred() || rec.Reason != stackptr.ReasonNotEnoughUses {
		t.Fatalf("got %+v", rec)
	}
	if rec.FunctionsAllLocal != 5 {
		t.Errorf("functions all: got %d, want 5", rec.FunctionsAllLocal)
	}

	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(out, &fields); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"stack_pointer_reads", "stack_pointer_writes", "stack_pointer_area"} {
		if _, ok := fields[key]; ok {
			t.Errorf("%s present on failure: %s", key, out)
		}
	}
	if n, ok := fields["functions_using_stack_pointer"]; !ok || n != float64(0) {
		t.Errorf("functions_using_stack_pointer must be 0 on failure: %s", out)
	}
}

func TestAnalyzeNoMemory(t *testing.T) {
	m := stackModule()
	m.Memories = nil

	a, _ := newObserved(t)
	rec, err := a.Analyze(context.Background(), "nomem", m.Encode())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rec.Reason != stackptr.ReasonNoMemory {
		t.Errorf("reason: got %q", rec.Reason)
	}
	if rec.FunctionsAllLocal != 6 {
		t.Errorf("functions all: got %d", rec.FunctionsAllLocal)
	}
}

func TestAnalyzeNoCandidates(t *testing.T) {
	m := module([]wasm.Global{constI32()}, body(reads(0, 10)))

	a, _ := newObserved(t)
	rec, err := a.Analyze(context.Background(), "consts", m.Encode())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rec.Reason != stackptr.ReasonNoCandidate {
		t.Errorf("reason: got %q", rec.Reason)
	}
}

func TestAnalyzeImportedStackPointer(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FuncType{{}},
		Imports: []wasm.Import{
			memoryImport(),
			globalImport("__stack_pointer", wasm.ValI32, true),
		},
		Funcs:   []uint32{0, 0},
		Globals: []wasm.Global{mutI32()},
		Code: []wasm.FuncBody{
			body(reads(0, 5), writes(0, 5), reads(1, 1)),
			body(reads(0, 1), writes(1, 9)),
		},
	}

	a, logs := newObserved(t)
	rec, err := a.Analyze(context.Background(), "dylib", m.Encode())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !rec.Inferred() || *rec.Index != 0 || rec.FunctionsUsingStackPointer != 2 {
		t.Fatalf("got %+v", rec)
	}
	if logs.FilterMessage("stack-named i32 imports").Len() != 1 {
		t.Error("stack-named import hint not logged")
	}
}

func TestAnalyzeKeepsPartialData(t *testing.T) {
	data := append(stackModule().Encode(), wasm.SectionData, 0x7F, 0x01)

	a, logs := newObserved(t)
	rec, err := a.Analyze(context.Background(), "corrupt", data)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !rec.Inferred() || *rec.Area != 80 || rec.FunctionsUsingStackPointer != 3 {
		t.Errorf("partial record: %+v", rec)
	}
	warns := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if len(warns) != 1 {
		t.Fatalf("expected one warning, got %d", len(warns))
	}
	if warns[0].ContextMap()["file"] != "corrupt" {
		t.Errorf("warning context: %v", warns[0].ContextMap())
	}
}

func TestAnalyzeSkippedOperatorsLogged(t *testing.T) {
	m := module([]wasm.Global{mutI32()}, body(reads(0, 4), []byte{0x27}, writes(0, 4)))

	a, logs := newObserved(t)
	rec, err := a.Analyze(context.Background(), "odd", m.Encode())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !rec.Inferred() {
		t.Errorf("unknown opcode blanked usage data: %+v", rec)
	}
	entries := logs.FilterMessage("skipped undecodable operators").All()
	if len(entries) != 1 || entries[0].ContextMap()["count"] != uint64(1) {
		t.Errorf("skip log: %+v", entries)
	}
}

func TestAnalyzeUnreadableFile(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"garbage", []byte("garbage!"), wasm.ErrInvalidMagic},
		{"component", []byte{0x00, 0x61, 0x73, 0x6D, 0x0D, 0x00, 0x01, 0x00}, wasm.ErrComponent},
		{"empty", nil, nil},
	}

	a, _ := newObserved(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := a.Analyze(context.Background(), tt.name, tt.data)
			if rec != nil {
				t.Fatalf("expected no record, got %+v", rec)
			}
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Phase != errors.PhaseDecode || e.File != tt.name {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != nil && !stderrors.Is(err, tt.want) {
				t.Errorf("cause: got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAnalyzeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a, _ := newObserved(t)
	_, err := a.Analyze(ctx, "late", stackModule().Encode())
	if !errors.HasKind(err, errors.KindCanceled) {
		t.Errorf("expected canceled error, got %v", err)
	}
}

func TestAnalyzerThresholds(t *testing.T) {
	m := module([]wasm.Global{mutI32()}, body(reads(0, 2), writes(0, 2)))
	a := stackptr.NewAnalyzer(stackptr.Thresholds{MinReads: 1, MinWrites: 1}, nil)
	rec, err := a.Analyze(context.Background(), "small", m.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if !rec.Inferred() || *rec.Area != 4 {
		t.Errorf("got %+v", rec)
	}
}
