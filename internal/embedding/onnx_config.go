package embedding

// ONNXConfig describes an ONNX sentence-embedding model.
type ONNXConfig struct {
	ModelPath string
	// VocabPath is the WordPiece vocab.txt shipped with the model export.
	VocabPath   string
	LibraryPath string
	Dimensions  int
	MaxTokens   int
	// OutputName is the graph output to read (default "last_hidden_state").
	OutputName string
	Pooling    Pooling
	// InputNames defaults to input_ids, attention_mask, token_type_ids.
	InputNames []string
}

func (c *ONNXConfig) applyDefaults() {
	if c.MaxTokens <= 0 {
		c.MaxTokens = 256
	}
	if c.Pooling == "" {
		c.Pooling = PoolingMean
	}
	if c.OutputName == "" {
		if c.Pooling == PoolingMean {
			c.OutputName = "last_hidden_state"
		} else {
			c.OutputName = "sentence_embedding"
		}
	}
	if len(c.InputNames) == 0 {
		c.InputNames = []string{"input_ids", "attention_mask", "token_type_ids"}
	}
}
