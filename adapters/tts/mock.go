package tts

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/voxballot/server/domain/repositories"
)

// MockSynthesizer records spoken feedback instead of producing audio. Used
// in development and tests.
type MockSynthesizer struct {
	logger *zap.Logger

	mu     sync.Mutex
	spoken []string
}

var _ repositories.SpeechSynthesizer = (*MockSynthesizer)(nil)

// NewMockSynthesizer creates a mock synthesizer.
func NewMockSynthesizer(logger *zap.Logger) *MockSynthesizer {
	return &MockSynthesizer{logger: logger}
}

// Speak implements repositories.SpeechSynthesizer.
func (m *MockSynthesizer) Speak(ctx context.Context, text string, opts repositories.VoiceOptions) error {
	m.logger.Debug("mock speak", zap.String("text", text), zap.Float64("rate", opts.Rate))
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spoken = append(m.spoken, text)
	return nil
}

// Stop implements repositories.SpeechSynthesizer.
func (m *MockSynthesizer) Stop() {}

// Spoken returns everything spoken so far.
func (m *MockSynthesizer) Spoken() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.spoken...)
}
