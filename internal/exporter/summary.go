package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunSummary is the JSON run report written next to the result tables.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	Entity      string    `json:"entity"`
	GeneratedAt time.Time `json:"generated_at"`
	Kept        int       `json:"entities_kept"`
	Discarded   int       `json:"entities_discarded"`
	Warnings    []string  `json:"warnings"`
	Artifacts   []string  `json:"artifacts"`
}

// WriteSummary writes the run summary as summary.json.
func (w *Writer) WriteSummary(summary RunSummary) (string, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	fullPath := filepath.Join(w.outputDir, "summary.json")

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", fullPath, err)
	}
	return fullPath, nil
}
