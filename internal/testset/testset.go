// Package testset answers a directory of generated test questions with the pipeline and
// writes one answer file per question file for offline evaluation.
package testset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/medrag/internal/generation"
	"github.com/hyperjump/medrag/internal/pipeline"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrorAnswer is written when the pipeline fails for a question.
const ErrorAnswer = "Error in generating response."

// Asker answers one question.
type Asker interface {
	Ask(ctx context.Context, question string, k int) (*pipeline.Response, error)
}

// Summary counts the outcome of a run.
type Summary struct {
	Answered int
	Skipped  int
	Failed   int
}

// Runner processes question files in batches, paced by a token bucket whose burst is
// the batch size.
type Runner struct {
	asker     Asker
	limiter   *rate.Limiter
	batchSize int
	topK      int
	logger    *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithTopK sets k for every question (0 uses the retriever default).
func WithTopK(k int) Option {
	return func(r *Runner) { r.topK = k }
}

// NewRunner creates a runner. requestsPerSecond <= 0 disables pacing.
func NewRunner(asker Asker, batchSize int, requestsPerSecond float64, opts ...Option) *Runner {
	if batchSize <= 0 {
		batchSize = 5
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	r := &Runner{
		asker:     asker,
		limiter:   rate.NewLimiter(limit, batchSize),
		batchSize: batchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run answers every "*.json" file in inputDir, in name order, writing answers to outputDir
// under the same file name. Files already answered and files without a question or
// disease are skipped. The returned error is non-nil only for directory failures or
// cancellation.
func (r *Runner) Run(ctx context.Context, inputDir, outputDir string) (*Summary, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read test set directory: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create answers directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	summary := &Summary{}
	for start := 0; start < len(names); start += r.batchSize {
		end := start + r.batchSize
		if end > len(names) {
			end = len(names)
		}
		r.logger.Debug("Processing batch", zap.Int("from", start), zap.Int("to", end))
		for _, name := range names[start:end] {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			if err := r.processFile(ctx, filepath.Join(inputDir, name), filepath.Join(outputDir, name), summary); err != nil {
				return summary, err
			}
		}
	}
	r.logger.Info("Test set answered",
		zap.Int("answered", summary.Answered),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

func (r *Runner) processFile(ctx context.Context, inPath, outPath string, summary *Summary) error {
	name := filepath.Base(inPath)
	if _, err := os.Stat(outPath); err == nil {
		r.logger.Info("Skipping already answered file", zap.String("file", name))
		summary.Skipped++
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", outPath, err)
	}

	data, err := os.ReadFile(inPath)
	if err != nil {
		r.logger.Warn("Failed to read question file", zap.String("file", name), zap.Error(err))
		summary.Failed++
		return nil
	}
	obj, err := decodeObject(data)
	if err != nil {
		r.logger.Warn("Malformed question file", zap.String("file", name), zap.Error(err))
		summary.Failed++
		return nil
	}
	question, disease := obj.stringField("question"), obj.stringField("disease")
	if question == "" || disease == "" {
		r.logger.Info("Skipping file with missing data", zap.String("file", name))
		summary.Skipped++
		return nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	answer := ErrorAnswer
	resp, err := r.asker.Ask(ctx, question, r.topK)
	switch {
	case err != nil:
		r.logger.Error("Failed to answer question", zap.String("file", name), zap.Error(err))
	case !resp.Generated && resp.Answer == generation.FailedAnswer:
		// Evaluation skips ErrorAnswer, so a failed model call must not look like an answer.
		r.logger.Error("Failed to generate answer", zap.String("file", name))
	default:
		answer = resp.Answer
	}
	if answer == ErrorAnswer {
		summary.Failed++
	} else {
		summary.Answered++
	}

	if err := obj.set("answer", answer); err != nil {
		return err
	}
	out, err := obj.encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, out, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	r.logger.Info("Saved answer", zap.String("file", name))
	return nil
}

// object is a JSON object that keeps its key order.
type object struct {
	keys   []string
	values map[string]json.RawMessage
}

func decodeObject(data []byte) (*object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}
	obj := &object{values: make(map[string]json.RawMessage)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected an object key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		if _, seen := obj.values[key]; !seen {
			obj.keys = append(obj.keys, key)
		}
		obj.values[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

// stringField returns the trimmed string value of key, or "" if absent or not a string.
func (o *object) stringField(key string) string {
	raw, ok := o.values[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func (o *object) set(key, value string) error {
	raw, err := marshalNoEscape(value)
	if err != nil {
		return err
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = raw
	return nil
}

// encode writes the object with four-space indentation and unescaped non-ASCII text.
func (o *object) encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n    ")
		k, err := marshalNoEscape(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteString(": ")
		if err := json.Indent(&buf, o.values[key], "    ", "    "); err != nil {
			return nil, fmt.Errorf("failed to format %q: %w", key, err)
		}
	}
	if len(o.keys) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}")
	return buf.Bytes(), nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
