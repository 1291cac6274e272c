package correlate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "2026-09-01_call_abc")
	r := &Result{
		CallIDShort: "call_abc",
		WordCount:   3,
		Summary:     Summary{TriggersFound: 1},
	}

	path, err := r.WriteArtifact(dir)
	if err != nil {
		t.Fatalf("WriteArtifact: %v", err)
	}
	if filepath.Base(path) != "correlation.json" {
		t.Errorf("artifact file = %s, want correlation.json", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	var decoded Result
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("artifact does not parse: %v", err)
	}
	if decoded.CallIDShort != "call_abc" || decoded.WordCount != 3 {
		t.Errorf("round trip lost data: %+v", decoded)
	}
}
