package repositories

import "context"

// VoiceOptions tunes spoken feedback.
type VoiceOptions struct {
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Volume float64 `json:"volume"`
}

// DefaultVoice returns the options used for all engine feedback.
func DefaultVoice() VoiceOptions {
	return VoiceOptions{Rate: 1.0, Pitch: 1.0, Volume: 1.0}
}

// SpeechSynthesizer abstracts text-to-speech feedback. A Speak call cancels
// any in-flight utterance; there is no queueing.
type SpeechSynthesizer interface {
	Speak(ctx context.Context, text string, opts VoiceOptions) error
	Stop()
}
