package testutils

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/papercomputeco/glassbox/pkg/llm"
)

// MockClient is a scripted llm.Client. Streams replay Chunks; Generate
// answers through GenerateFunc when set, otherwise with Response.
type MockClient struct {
	mu sync.Mutex

	// Chunks replayed by every stream, in order.
	Chunks []llm.StreamChunk

	// StreamErr causes Stream to fail before any chunk is produced.
	StreamErr error

	// NextErr is returned by Next once FailAfter chunks have been delivered.
	NextErr   error
	FailAfter int

	// Stall makes Next block after the last chunk until the stream's
	// context ends or the stream is closed.
	Stall bool

	// Response is the text returned by Generate when GenerateFunc is nil.
	Response    string
	GenerateErr error

	// GenerateFunc overrides Generate entirely.
	GenerateFunc func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)

	// TokenCount overrides the whitespace word count used by CountTokens.
	TokenCount int
	CountErr   error

	// Requests records every request seen by Generate and Stream.
	Requests []*llm.ChatRequest

	// Streams records every stream handed out.
	Streams []*MockStream
}

// NewMockClient creates a mock client streaming the given text chunks.
func NewMockClient(chunks ...string) *MockClient {
	m := &MockClient{}
	for _, c := range chunks {
		m.Chunks = append(m.Chunks, llm.StreamChunk{Text: c})
	}
	return m
}

func (m *MockClient) Name() string {
	return "mock"
}

func (m *MockClient) Generate(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.record(req)

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	if m.GenerateErr != nil {
		return nil, m.GenerateErr
	}

	return &llm.ChatResponse{
		Model:   "mock",
		Message: llm.NewTextMessage(llm.RoleAssistant, m.Response),
		Usage: &llm.Usage{
			PromptTokens:     10,
			CompletionTokens: 5,
			TotalTokens:      15,
		},
	}, nil
}

func (m *MockClient) Stream(ctx context.Context, req *llm.ChatRequest) (llm.Stream, error) {
	m.record(req)

	if m.StreamErr != nil {
		return nil, m.StreamErr
	}

	s := &MockStream{
		ctx:       ctx,
		chunks:    m.Chunks,
		failAfter: m.FailAfter,
		err:       m.NextErr,
		stall:     m.Stall,
		release:   make(chan struct{}),
	}

	m.mu.Lock()
	m.Streams = append(m.Streams, s)
	m.mu.Unlock()

	return s, nil
}

func (m *MockClient) CountTokens(_ context.Context, text string) (int, error) {
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	if m.TokenCount > 0 {
		return m.TokenCount, nil
	}
	return len(strings.FieldsFunc(text, unicode.IsSpace)), nil
}

// LastStream returns the most recently opened stream, or nil.
func (m *MockClient) LastStream() *MockStream {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Streams) == 0 {
		return nil
	}
	return m.Streams[len(m.Streams)-1]
}

func (m *MockClient) record(req *llm.ChatRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
}

// MockStream replays scripted chunks and tracks how it was consumed.
type MockStream struct {
	ctx       context.Context
	chunks    []llm.StreamChunk
	failAfter int
	err       error
	stall     bool
	release   chan struct{}

	mu     sync.Mutex
	pulled int
	closed int
}

func (s *MockStream) Next() (*llm.StreamChunk, error) {
	s.mu.Lock()
	if s.stall && s.closed == 0 && s.pulled >= len(s.chunks) {
		s.mu.Unlock()
		select {
		case <-s.ctx.Done():
		case <-s.release:
		}
		s.mu.Lock()
	}
	defer s.mu.Unlock()

	if s.closed > 0 {
		return nil, context.Canceled
	}
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil && s.pulled >= s.failAfter {
		return nil, s.err
	}
	if s.pulled >= len(s.chunks) {
		return nil, nil
	}

	c := s.chunks[s.pulled]
	s.pulled++
	return &c, nil
}

func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed == 0 {
		close(s.release)
	}
	s.closed++
	return nil
}

// Pulled returns how many chunks were delivered.
func (s *MockStream) Pulled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pulled
}

// Closed reports whether Close was called at least once.
func (s *MockStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed > 0
}
