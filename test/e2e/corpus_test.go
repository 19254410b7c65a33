package e2e

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/medrag/internal/chunker"
)

func TestBuildCorpus_TwoQuestionsPerCondition(t *testing.T) {
	c := BuildCorpus()
	if len(c.Conditions) != len(conditionSeeds) {
		t.Errorf("expected %d conditions, got %d", len(conditionSeeds), len(c.Conditions))
	}
	if len(c.TestCases) != 2*len(c.Conditions) {
		t.Errorf("expected %d test cases, got %d", 2*len(c.Conditions), len(c.TestCases))
	}
	seen := make(map[string]bool)
	for i, tc := range c.TestCases {
		if tc.Question == "" || tc.ExpectedChunkID == "" {
			t.Errorf("test case %d incomplete: %+v", i, tc)
		}
		if seen[tc.ExpectedChunkID] {
			t.Errorf("chunk id %s expected by two test cases", tc.ExpectedChunkID)
		}
		seen[tc.ExpectedChunkID] = true
	}
}

func TestCondition_RawDocumentParses(t *testing.T) {
	for _, cond := range BuildCorpus().Conditions {
		doc, err := chunker.ParseRawDocument(cond.RawDocument())
		if err != nil {
			t.Fatalf("%s: %v", cond.Disease, err)
		}
		if len(doc.Categories) != 3 || doc.Categories[0].Name != "Overview" || doc.Categories[2].Name != "Treatment" {
			t.Errorf("%s: categories = %+v", cond.Disease, doc.Categories)
		}
	}
}

func TestCorpus_WriteRawDocuments(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "raw")
	c := BuildCorpus()
	if err := c.WriteRawDocuments(dir); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(c.Conditions) {
		t.Errorf("expected %d files, got %d", len(c.Conditions), len(entries))
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".json") {
			t.Errorf("unexpected file %s", e.Name())
		}
	}
}
