package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/hyperjump/medrag/internal/models"
)

// collectionMagic and collectionVersion head every collection file.
const (
	collectionMagic   = "MRVC"
	collectionVersion = uint32(1)
)

// MemoryCollection is an in-memory collection using brute-force cosine search.
// The file backend persists it with Save/Load.
type MemoryCollection struct {
	name       string
	dimensions int
	ids        []string
	vectors    [][]float32
	metadata   []map[string]string
	positions  map[string]int
	dirty      bool
	mu         sync.RWMutex
}

// NewMemoryCollection creates an empty collection. The dimension is fixed by the first upsert.
func NewMemoryCollection(name string) *MemoryCollection {
	return &MemoryCollection{name: name, positions: make(map[string]int)}
}

// Name returns the collection name.
func (m *MemoryCollection) Name() string {
	return m.name
}

// Dimensions returns the vector dimension, or 0 while the collection is empty.
func (m *MemoryCollection) Dimensions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dimensions
}

// Upsert stores vector under id, replacing an existing record in place.
func (m *MemoryCollection) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("record id is required")
	}
	if len(vector) == 0 {
		return fmt.Errorf("empty vector for %s", id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dimensions == 0 {
		m.dimensions = len(vector)
	}
	if len(vector) != m.dimensions {
		return fmt.Errorf("collection %s: got %d dimensions, expected %d: %w",
			m.name, len(vector), m.dimensions, models.ErrDimensionMismatch)
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	meta := copyMetadata(metadata)
	if pos, ok := m.positions[id]; ok {
		m.vectors[pos] = vec
		m.metadata[pos] = meta
	} else {
		m.positions[id] = len(m.ids)
		m.ids = append(m.ids, id)
		m.vectors = append(m.vectors, vec)
		m.metadata = append(m.metadata, meta)
	}
	m.dirty = true
	return nil
}

// Query returns the top-k records by cosine similarity.
func (m *MemoryCollection) Query(ctx context.Context, vector []float32, k int) ([]*Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.ids) == 0 {
		return []*Match{}, nil
	}
	if len(vector) != m.dimensions {
		return nil, fmt.Errorf("collection %s: query has %d dimensions, expected %d: %w",
			m.name, len(vector), m.dimensions, models.ErrDimensionMismatch)
	}
	candidates := make([]candidate, len(m.ids))
	for i, id := range m.ids {
		candidates[i] = candidate{id: id, vector: m.vectors[i], metadata: m.metadata[i]}
	}
	return rankTopK(vector, candidates, k), nil
}

// Count returns the number of records.
func (m *MemoryCollection) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids), nil
}

// Dirty reports whether the collection changed since the last Save or Load.
func (m *MemoryCollection) Dirty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dirty
}

// Save writes the collection to path via a temporary file and rename.
// Format (little endian): magic "MRVC", version, dimensions, n, then per record:
// idLen, id, metaLen, metadata JSON, vector (dimensions*4 bytes).
func (m *MemoryCollection) Save(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create collection dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".collection-*.tmp")
	if err != nil {
		return fmt.Errorf("create collection file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := m.encode(w); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush collection file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close collection file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename collection file: %w", err)
	}
	m.dirty = false
	return nil
}

func (m *MemoryCollection) encode(w io.Writer) error {
	if _, err := io.WriteString(w, collectionMagic); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	header := []uint32{collectionVersion, uint32(m.dimensions), uint32(len(m.ids))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, id := range m.ids {
		meta, err := json.Marshal(m.metadata[i])
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", id, err)
		}
		if err := writeBytes(w, []byte(id)); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if err := writeBytes(w, meta); err != nil {
			return fmt.Errorf("write metadata: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(m.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load replaces the collection contents with the file at path.
// A missing file leaves the collection empty.
func (m *MemoryCollection) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open collection file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	magic := make([]byte, len(collectionMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != collectionMagic {
		return fmt.Errorf("%s is not a collection file", path)
	}
	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if header[0] != collectionVersion {
		return fmt.Errorf("unsupported collection version %d", header[0])
	}
	dims, n := int(header[1]), int(header[2])

	ids := make([]string, 0, n)
	vectors := make([][]float32, 0, n)
	metadata := make([]map[string]string, 0, n)
	positions := make(map[string]int, n)
	buf := make([]byte, dims*4)
	for i := 0; i < n; i++ {
		id, err := readBytes(r)
		if err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		rawMeta, err := readBytes(r)
		if err != nil {
			return fmt.Errorf("read metadata: %w", err)
		}
		var meta map[string]string
		if err := json.Unmarshal(rawMeta, &meta); err != nil {
			return fmt.Errorf("decode metadata for %s: %w", id, err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		positions[string(id)] = len(ids)
		ids = append(ids, string(id))
		vectors = append(vectors, bytesToFloat32Slice(buf))
		metadata = append(metadata, copyMetadata(meta))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.dimensions = dims
	m.ids = ids
	m.vectors = vectors
	m.metadata = metadata
	m.positions = positions
	m.dirty = false
	return nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
