package testutils

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/papercomputeco/glassbox/pkg/embeddings"
)

// mockDims is the length of the vectors MockEmbedder derives on its own.
const mockDims = 8

// MockEmbedder returns fixed vectors for known texts and a deterministic
// hash-derived vector for anything else, so distinct texts land apart.
type MockEmbedder struct {
	Embeddings map[string][]float32

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	mu     sync.Mutex
	calls  int
	closed bool
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("%w: mock failure for %q", embeddings.ErrEmbedding, text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, mockDims)
	for i := range vec {
		vec[i] = float32((seed>>(i*8))&0xff) / 255
	}
	return vec, nil
}

// Calls reports how many times Embed ran.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockEmbedder) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (m *MockEmbedder) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ embeddings.Embedder = (*MockEmbedder)(nil)
