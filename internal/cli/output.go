// Package cli provides output writers for the medrag commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/medrag/internal/chunker"
	"github.com/hyperjump/medrag/internal/indexer"
	"github.com/hyperjump/medrag/internal/models"
	"github.com/hyperjump/medrag/internal/pipeline"
	"github.com/hyperjump/medrag/internal/testset"
	"github.com/hyperjump/medrag/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("invalid output format %q (use text or json)", s)
	}
}

const historyPreview = 120

type answerJSON struct {
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	Context   string   `json:"context"`
	ChunkIDs  []string `json:"chunk_ids"`
	Generated bool     `json:"generated"`
}

// WriteAnswer writes one pipeline response.
func WriteAnswer(w io.Writer, resp *pipeline.Response, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, answerJSON{
			Question:  resp.Question,
			Answer:    resp.Answer,
			Context:   resp.Context,
			ChunkIDs:  resp.ChunkIDs,
			Generated: resp.Generated,
		})
	}
	fmt.Fprintf(w, "\nQ: %s\n\n%s\n\n", resp.Question, resp.Answer)
	if len(resp.ChunkIDs) > 0 {
		fmt.Fprintf(w, "Sources (%d): %s\n", len(resp.ChunkIDs), strings.Join(resp.ChunkIDs, ", "))
	}
	if resp.Dropped > 0 {
		fmt.Fprintf(w, "Warning: %d retrieved chunk(s) were missing from the corpus\n", resp.Dropped)
	}
	return nil
}

// WriteHistory writes the chat history, oldest first.
func WriteHistory(w io.Writer, items []models.HistoryItem, format OutputFormat) error {
	if format == OutputJSON {
		if items == nil {
			items = []models.HistoryItem{}
		}
		return writeJSON(w, items)
	}
	if len(items) == 0 {
		fmt.Fprintln(w, "No history.")
		return nil
	}
	for i, item := range items {
		fmt.Fprintf(w, "%d. Q: %s\n   A: %s\n", i+1,
			utils.Truncate(utils.SingleLine(item.Query), historyPreview),
			utils.Truncate(utils.SingleLine(item.Answer), historyPreview))
	}
	return nil
}

// WriteChunkReport summarizes a chunking run.
func WriteChunkReport(w io.Writer, report *chunker.Report) {
	fmt.Fprintf(w, "Chunked %d document(s) into %d chunk(s)\n", report.Files, report.Chunks)
	for _, path := range sortedKeys(report.Failed) {
		fmt.Fprintf(w, "  skipped %s: %v\n", path, report.Failed[path])
	}
}

// WriteIndexReport summarizes an indexing run, one line per model.
func WriteIndexReport(w io.Writer, report *indexer.Report, modelIDs []string) {
	fmt.Fprintf(w, "Indexed %d chunk(s) under %d model(s)\n", report.Chunks, len(modelIDs))
	for _, id := range modelIDs {
		if err, ok := report.Errors[id]; ok {
			fmt.Fprintf(w, "  %s: error: %v\n", id, err)
			continue
		}
		fmt.Fprintf(w, "  %s: %d indexed, %d failed\n", id, report.Indexed[id], report.Failed[id])
	}
}

// WriteTestsetSummary summarizes a test-set run.
func WriteTestsetSummary(w io.Writer, s *testset.Summary) {
	fmt.Fprintf(w, "Test set: %d answered, %d skipped, %d failed\n", s.Answered, s.Skipped, s.Failed)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
