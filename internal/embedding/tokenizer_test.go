package embedding

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// testVocab mirrors the layout of a BERT vocab.txt: specials first, then whole words and
// ## continuation pieces.
var testVocab = []string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]", "[MASK]",
	"fever", "and", "cough", ",", ".", "?",
	"head", "##ache", "##s", "cafe", "flu",
}

func newTestTokenizer(t *testing.T) *WordPieceTokenizer {
	t.Helper()
	tok, err := NewWordPieceTokenizer(strings.NewReader(strings.Join(testVocab, "\n") + "\n"))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func vocabID(t *testing.T, token string) int64 {
	t.Helper()
	for i, v := range testVocab {
		if v == token {
			return int64(i)
		}
	}
	t.Fatalf("token %q not in test vocab", token)
	return -1
}

func TestWordPieceTokenizer_Tokenize(t *testing.T) {
	tok := newTestTokenizer(t)
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"words and punctuation", "Fever, cough.", []string{"fever", ",", "cough", "."}},
		{"continuation pieces", "headaches", []string{"head", "##ache", "##s"}},
		{"accents stripped", "Café", []string{"cafe"}},
		{"unknown word", "zzz flu", []string{"[UNK]", "flu"}},
		{"partly covered word is unknown", "headx", []string{"[UNK]"}},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, attn, types := tok.Tokenize(tt.text, 12)
			if len(ids) != 12 || len(attn) != 12 || len(types) != 12 {
				t.Fatalf("lengths: %d %d %d", len(ids), len(attn), len(types))
			}
			want := []int64{vocabID(t, "[CLS]")}
			for _, w := range tt.want {
				want = append(want, vocabID(t, w))
			}
			want = append(want, vocabID(t, "[SEP]"))
			if !reflect.DeepEqual(ids[:len(want)], want) {
				t.Errorf("ids = %v, want prefix %v", ids, want)
			}
			for i := range ids {
				attended := i < len(want)
				if (attn[i] == 1) != attended {
					t.Errorf("attention[%d] = %d", i, attn[i])
				}
				if !attended && ids[i] != vocabID(t, "[PAD]") {
					t.Errorf("ids[%d] = %d, want [PAD]", i, ids[i])
				}
			}
		})
	}
}

func TestWordPieceTokenizer_truncates(t *testing.T) {
	tok := newTestTokenizer(t)
	ids, attn, _ := tok.Tokenize("fever and cough and fever and cough", 5)
	want := []int64{vocabID(t, "[CLS]"), vocabID(t, "fever"), vocabID(t, "and"), vocabID(t, "cough"), vocabID(t, "[SEP]")}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
	for i, a := range attn {
		if a != 1 {
			t.Errorf("attention[%d] = %d, want 1 for full window", i, a)
		}
	}
}

func TestLoadWordPieceTokenizer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.txt")
	if err := os.WriteFile(path, []byte(strings.Join(testVocab, "\r\n")), 0600); err != nil {
		t.Fatal(err)
	}
	tok, err := LoadWordPieceTokenizer(path)
	if err != nil {
		t.Fatal(err)
	}
	ids, _, _ := tok.Tokenize("flu", 4)
	if ids[1] != vocabID(t, "flu") {
		t.Errorf("ids = %v", ids)
	}

	if _, err := LoadWordPieceTokenizer(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing vocab")
	}
	if _, err := NewWordPieceTokenizer(strings.NewReader("fever\ncough\n")); err == nil {
		t.Error("expected error for vocab without special tokens")
	}
}

func TestMeanPool(t *testing.T) {
	hidden := []float32{
		1, 2, // [CLS]
		3, 4, // token
		100, 100, // padding
	}
	got := meanPool(hidden, []int64{1, 1, 0}, 2)
	if !reflect.DeepEqual(got, []float32{2, 3}) {
		t.Errorf("meanPool = %v, want [2 3]", got)
	}
	if got := meanPool(hidden, []int64{0, 0, 0}, 2); !reflect.DeepEqual(got, []float32{0, 0}) {
		t.Errorf("meanPool with empty mask = %v", got)
	}
}

func TestONNXConfig_applyDefaults(t *testing.T) {
	cfg := ONNXConfig{}
	cfg.applyDefaults()
	if cfg.Pooling != PoolingMean || cfg.OutputName != "last_hidden_state" || cfg.MaxTokens != 256 {
		t.Errorf("mean defaults: %+v", cfg)
	}
	if len(cfg.InputNames) != 3 || cfg.InputNames[2] != "token_type_ids" {
		t.Errorf("input names: %v", cfg.InputNames)
	}
	pooled := ONNXConfig{Pooling: PoolingNone}
	pooled.applyDefaults()
	if pooled.OutputName != "sentence_embedding" {
		t.Errorf("pooled output name = %q", pooled.OutputName)
	}
}
