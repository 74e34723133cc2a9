package websocket

import (
	"context"
	"sync"

	"github.com/voxballot/server/domain/repositories"
)

// remoteRecognizer implements repositories.SpeechRecognizer backed by the
// client's own recognition engine. Start and Stop become listen control
// messages; the engine's events flow back over the connection and are
// forwarded to the subscribed handler by the client's read loop.
type remoteRecognizer struct {
	send func(v interface{}) bool

	mu         sync.Mutex
	handler    repositories.RecognitionHandler
	continuous bool
	supported  bool
}

var _ repositories.SpeechRecognizer = (*remoteRecognizer)(nil)

func newRemoteRecognizer(send func(v interface{}) bool, supported bool) *remoteRecognizer {
	return &remoteRecognizer{send: send, supported: supported}
}

// Subscribe implements repositories.SpeechRecognizer.
func (r *remoteRecognizer) Subscribe(h repositories.RecognitionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = h
}

// SetContinuous implements repositories.SpeechRecognizer.
func (r *remoteRecognizer) SetContinuous(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.continuous = on
}

// Start implements repositories.SpeechRecognizer. The started event arrives
// asynchronously from the client.
func (r *remoteRecognizer) Start(ctx context.Context) error {
	r.mu.Lock()
	continuous := r.continuous
	supported := r.supported
	r.mu.Unlock()

	if !supported {
		return repositories.ErrRecognitionUnsupported
	}
	r.send(&ListenControlMessage{
		BaseMessage: BaseMessage{Type: MessageTypeListenStart, Timestamp: now()},
		Continuous:  continuous,
	})
	return nil
}

// Stop implements repositories.SpeechRecognizer.
func (r *remoteRecognizer) Stop() {
	r.send(&ListenControlMessage{
		BaseMessage: BaseMessage{Type: MessageTypeListenStop, Timestamp: now()},
	})
}

func (r *remoteRecognizer) subscribed() repositories.RecognitionHandler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handler
}

// handleStarted forwards the client's started event.
func (r *remoteRecognizer) handleStarted() {
	if h := r.subscribed(); h != nil {
		h.OnStarted()
	}
}

// handleResult forwards one recognized utterance.
func (r *remoteRecognizer) handleResult(text string) {
	if h := r.subscribed(); h != nil {
		h.OnResult(text)
	}
}

// handleError forwards a recognition error.
func (r *remoteRecognizer) handleError(kind repositories.RecognitionErrorKind) {
	if h := r.subscribed(); h != nil {
		h.OnError(kind)
	}
}

// handleEnded forwards the end-of-segment event.
func (r *remoteRecognizer) handleEnded() {
	if h := r.subscribed(); h != nil {
		h.OnEnded()
	}
}

// remoteSynthesizer implements repositories.SpeechSynthesizer by asking the
// client to speak. The client cancels any in-flight utterance itself when a
// new speak request arrives.
type remoteSynthesizer struct {
	send func(v interface{}) bool
}

var _ repositories.SpeechSynthesizer = (*remoteSynthesizer)(nil)

func newRemoteSynthesizer(send func(v interface{}) bool) *remoteSynthesizer {
	return &remoteSynthesizer{send: send}
}

// Speak implements repositories.SpeechSynthesizer.
func (s *remoteSynthesizer) Speak(ctx context.Context, text string, opts repositories.VoiceOptions) error {
	s.send(CreateSpeakMessage(text, opts))
	return nil
}

// Stop implements repositories.SpeechSynthesizer.
func (s *remoteSynthesizer) Stop() {
	s.send(&BaseMessage{Type: MessageTypeSpeakStop, Timestamp: now()})
}
