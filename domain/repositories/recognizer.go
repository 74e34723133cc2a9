package repositories

import (
	"context"
	"errors"
)

// ErrRecognitionUnsupported is returned by Start when no recognition
// capability is available. The session cannot start in that case.
var ErrRecognitionUnsupported = errors.New("speech recognition not supported")

// RecognitionErrorKind classifies errors emitted by the recognition engine.
type RecognitionErrorKind string

const (
	RecognitionErrNoSpeech     RecognitionErrorKind = "no-speech"
	RecognitionErrAborted      RecognitionErrorKind = "aborted"
	RecognitionErrNotAllowed   RecognitionErrorKind = "not-allowed"
	RecognitionErrAudioCapture RecognitionErrorKind = "audio-capture"
	RecognitionErrNetwork      RecognitionErrorKind = "network"
)

// Transient reports whether the error kind is recoverable by an automatic
// restart while always-on mode is enabled.
func (k RecognitionErrorKind) Transient() bool {
	return k == RecognitionErrNoSpeech || k == RecognitionErrAborted
}

// RecognitionHandler receives the continuous recognition engine's events.
// Events arrive one at a time; each is processed to completion before the
// next is delivered.
type RecognitionHandler interface {
	OnStarted()
	OnResult(text string)
	OnError(kind RecognitionErrorKind)
	OnEnded()
}

// SpeechRecognizer abstracts a continuous speech-to-text engine.
type SpeechRecognizer interface {
	// Start begins a listening segment. Returns ErrRecognitionUnsupported
	// when the capability is missing.
	Start(ctx context.Context) error
	// Stop ends the current listening segment.
	Stop()
	// SetContinuous toggles continuous (multi-utterance) recognition.
	SetContinuous(on bool)
	// Subscribe registers the single handler for engine events.
	Subscribe(h RecognitionHandler)
}
