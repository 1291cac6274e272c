package correlate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteArtifact writes the structured correlation payload for one call.
// A failed write propagates: a silently missing artifact is worse than a
// visible failure.
func (r *Result) WriteArtifact(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create correlation dir: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal correlation payload: %w", err)
	}
	path := filepath.Join(dir, "correlation.json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write correlation artifact: %w", err)
	}
	return path, nil
}
