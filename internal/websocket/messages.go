package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/voxballot/server/adapters/surface"
	"github.com/voxballot/server/domain/entities"
	"github.com/voxballot/server/domain/repositories"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	// Client to server
	MessageTypeSpeechResult  MessageType = "speech_result"
	MessageTypeSpeechStarted MessageType = "speech_started"
	MessageTypeSpeechEnded   MessageType = "speech_ended"
	MessageTypeSpeechError   MessageType = "speech_error"
	MessageTypeSurfaceSync   MessageType = "surface_sync"
	MessageTypeContextSet    MessageType = "context_set"
	MessageTypeToggle        MessageType = "toggle"
	MessageTypePing          MessageType = "ping"

	// Server to client
	MessageTypeListenStart MessageType = "listen_start"
	MessageTypeListenStop  MessageType = "listen_stop"
	MessageTypeSpeak       MessageType = "speak"
	MessageTypeSpeakStop   MessageType = "speak_stop"
	MessageTypeStatus      MessageType = "status"
	MessageTypeInvoke      MessageType = "invoke"
	MessageTypeNavigate    MessageType = "navigate"
	MessageTypePong        MessageType = "pong"
	MessageTypeError       MessageType = "error"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// SpeechResultMessage carries one recognized utterance from the client's
// recognition engine.
type SpeechResultMessage struct {
	BaseMessage
	Text string `json:"text"`
	Seq  uint64 `json:"seq,omitempty"`
}

// SpeechErrorMessage reports a recognition engine error from the client.
type SpeechErrorMessage struct {
	BaseMessage
	Kind string `json:"kind"`
}

// SurfaceSyncMessage replaces the server-side mirror of the client's
// invocable elements. Replace semantics: the message describes the whole
// surface.
type SurfaceSyncMessage struct {
	BaseMessage
	Elements []surface.Element `json:"elements"`
}

// ContextSetMessage records the page the client navigated to.
type ContextSetMessage struct {
	BaseMessage
	Context string `json:"context"`
}

// ToggleMessage flips always-on listening.
type ToggleMessage struct {
	BaseMessage
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// ListenControlMessage asks the client's recognition engine to start or
// stop a listening segment.
type ListenControlMessage struct {
	BaseMessage
	Continuous bool `json:"continuous,omitempty"`
}

// SpeakMessage asks the client to speak feedback text.
type SpeakMessage struct {
	BaseMessage
	Text   string  `json:"text"`
	Rate   float64 `json:"rate,omitempty"`
	Pitch  float64 `json:"pitch,omitempty"`
	Volume float64 `json:"volume,omitempty"`
}

// StatusMessage mirrors the listening indicator to the client.
type StatusMessage struct {
	BaseMessage
	Text   string `json:"text"`
	Active bool   `json:"active"`
}

// InvokeMessage asks the client to activate one of its surface elements.
type InvokeMessage struct {
	BaseMessage
	ID   string `json:"id"`
	Role string `json:"role,omitempty"`
}

// NavigateMessage asks the client to navigate to a page.
type NavigateMessage struct {
	BaseMessage
	Context string `json:"context"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

// MessageValidator provides validation for incoming WebSocket messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage parses and validates an incoming message, returning the
// typed form.
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeSpeechResult:
		var msg SpeechResultMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid speech result message: %w", err)
		}
		if msg.Text == "" {
			return nil, fmt.Errorf("text is required")
		}
		return &msg, nil

	case MessageTypeSpeechStarted, MessageTypeSpeechEnded:
		var msg BaseMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid speech event message: %w", err)
		}
		return &msg, nil

	case MessageTypeSpeechError:
		var msg SpeechErrorMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid speech error message: %w", err)
		}
		if err := v.validateSpeechError(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MessageTypeSurfaceSync:
		var msg SurfaceSyncMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid surface sync message: %w", err)
		}
		return &msg, nil

	case MessageTypeContextSet:
		var msg ContextSetMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid context set message: %w", err)
		}
		if !entities.PageContext(msg.Context).Valid() {
			return nil, fmt.Errorf("unknown page context: %s", msg.Context)
		}
		return &msg, nil

	case MessageTypeToggle:
		var msg ToggleMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid toggle message: %w", err)
		}
		return &msg, nil

	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

// validateSpeechError checks the error kind against the engine's taxonomy.
func (v *MessageValidator) validateSpeechError(msg *SpeechErrorMessage) error {
	validKinds := map[string]bool{
		string(repositories.RecognitionErrNoSpeech):     true,
		string(repositories.RecognitionErrAborted):      true,
		string(repositories.RecognitionErrNotAllowed):   true,
		string(repositories.RecognitionErrAudioCapture): true,
		string(repositories.RecognitionErrNetwork):      true,
	}
	if !validKinds[msg.Kind] {
		return fmt.Errorf("kind must be one of: no-speech, aborted, not-allowed, audio-capture, network")
	}
	return nil
}

func now() string {
	return time.Now().Format(time.RFC3339)
}

// CreateSpeakMessage builds a speak request from voice options.
func CreateSpeakMessage(text string, opts repositories.VoiceOptions) *SpeakMessage {
	return &SpeakMessage{
		BaseMessage: BaseMessage{Type: MessageTypeSpeak, Timestamp: now()},
		Text:        text,
		Rate:        opts.Rate,
		Pitch:       opts.Pitch,
		Volume:      opts.Volume,
	}
}

// CreateStatusMessage builds a listening indicator update.
func CreateStatusMessage(status entities.ListeningStatus) *StatusMessage {
	return &StatusMessage{
		BaseMessage: BaseMessage{Type: MessageTypeStatus, Timestamp: now()},
		Text:        status.Text,
		Active:      status.Active,
	}
}

// CreateInvokeMessage builds an element activation request.
func CreateInvokeMessage(id, role string) *InvokeMessage {
	return &InvokeMessage{
		BaseMessage: BaseMessage{Type: MessageTypeInvoke, Timestamp: now()},
		ID:          id,
		Role:        role,
	}
}

// CreateNavigateMessage builds a navigation request.
func CreateNavigateMessage(page entities.PageContext) *NavigateMessage {
	return &NavigateMessage{
		BaseMessage: BaseMessage{Type: MessageTypeNavigate, Timestamp: now()},
		Context:     string(page),
	}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: BaseMessage{Type: MessageTypeError, Timestamp: now()},
		Code:        code,
		Message:     message,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PingMessage {
	return &PingMessage{
		BaseMessage: BaseMessage{Type: MessageTypePong, Timestamp: now()},
		Data:        data,
	}
}
