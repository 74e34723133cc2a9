package stt

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/voxballot/server/domain/repositories"
)

// MockRecognizer is a scripted implementation of
// repositories.SpeechRecognizer for development without Google credentials.
// Utterances queued with Say are delivered to the handler on the next Start.
type MockRecognizer struct {
	logger *zap.Logger

	mu         sync.Mutex
	handler    repositories.RecognitionHandler
	continuous bool
	running    bool
	queued     []string
}

// NewMockRecognizer creates a mock recognizer with an empty script.
func NewMockRecognizer(logger *zap.Logger) *MockRecognizer {
	return &MockRecognizer{logger: logger}
}

// Say queues an utterance. If a segment is active the utterance is delivered
// immediately; otherwise it is held until the next Start.
func (m *MockRecognizer) Say(text string) {
	m.mu.Lock()
	if m.running {
		handler := m.handler
		m.mu.Unlock()
		handler.OnResult(text)
		return
	}
	m.queued = append(m.queued, text)
	m.mu.Unlock()
}

// Fail delivers a recognition error to the handler.
func (m *MockRecognizer) Fail(kind repositories.RecognitionErrorKind) {
	m.mu.Lock()
	handler := m.handler
	m.running = false
	m.mu.Unlock()

	if handler != nil {
		handler.OnError(kind)
	}
}

// Subscribe implements repositories.SpeechRecognizer.
func (m *MockRecognizer) Subscribe(h repositories.RecognitionHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
}

// SetContinuous implements repositories.SpeechRecognizer.
func (m *MockRecognizer) SetContinuous(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.continuous = on
}

// Start implements repositories.SpeechRecognizer.
func (m *MockRecognizer) Start(ctx context.Context) error {
	m.mu.Lock()
	handler := m.handler
	queued := m.queued
	m.queued = nil
	m.running = true
	m.mu.Unlock()

	if handler == nil {
		return repositories.ErrRecognitionUnsupported
	}

	m.logger.Debug("mock recognizer started", zap.Int("queued", len(queued)))
	handler.OnStarted()
	for _, text := range queued {
		handler.OnResult(text)
	}
	return nil
}

// Stop implements repositories.SpeechRecognizer.
func (m *MockRecognizer) Stop() {
	m.mu.Lock()
	handler := m.handler
	wasRunning := m.running
	m.running = false
	m.mu.Unlock()

	if wasRunning && handler != nil {
		handler.OnEnded()
	}
}
