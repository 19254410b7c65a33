// Package fileid maps between disease names, corpus file names, collection names, and
// deterministic chunk IDs.
package fileid

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ChunkFileSuffix is appended to a disease name to form its chunk file name.
const ChunkFileSuffix = "_documents.json"

// chunkNamespace scopes stable chunk IDs so they never collide with other SHA-1 UUIDs.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("medrag:chunk"))

// DiseaseFromPath returns the disease name for a raw document path: the base name
// without its extension ("/data/raw/flu.json" -> "flu").
func DiseaseFromPath(path string) string {
	base := filepath.Base(filepath.Clean(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ChunkFileName returns the corpus file name for a disease.
func ChunkFileName(disease string) string {
	return disease + ChunkFileSuffix
}

// DiseaseFromChunkFile returns the disease encoded in a chunk file name.
// ok is false when name is not a chunk file.
func DiseaseFromChunkFile(name string) (disease string, ok bool) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, ChunkFileSuffix) {
		return "", false
	}
	disease = strings.TrimSuffix(base, ChunkFileSuffix)
	if disease == "" {
		return "", false
	}
	return disease, true
}

// CollectionName returns the vector collection name for an embedding model identifier.
// "/" becomes "_" ("sentence-transformers/all-MiniLM-L6-v2" -> "sentence-transformers_all-MiniLM-L6-v2"),
// as does any other character outside [A-Za-z0-9._-].
func CollectionName(modelID string) string {
	var b strings.Builder
	b.Grow(len(modelID))
	for _, r := range modelID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// StableChunkID returns a deterministic chunk ID for a (disease, category, subsection) address.
// The same address always yields the same ID, so re-chunking unchanged sources is idempotent.
func StableChunkID(disease, category, subCategory string) string {
	name := disease + "\x1f" + category + "\x1f" + subCategory
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}
