// Package stt provides speech-to-text recognizers. The Google adapter runs
// continuous recognition server-side over Google Cloud Speech streaming; the
// hosting client feeds it raw audio chunks.
package stt

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/voxballot/server/domain/repositories"
)

// AudioConfig describes the audio the client feeds into the recognizer.
type AudioConfig struct {
	Encoding   string
	SampleRate int
	Language   string
}

// DefaultAudioConfig matches the browser's MediaRecorder output.
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		Encoding:   "WEBM_OPUS",
		SampleRate: 48000,
		Language:   "en-US",
	}
}

// GoogleRecognizer implements repositories.SpeechRecognizer on top of
// Google Cloud Speech streaming recognition. One listening segment maps to
// one streaming RPC; always-on restarts open a fresh stream.
type GoogleRecognizer struct {
	config AudioConfig
	logger *zap.Logger

	mu         sync.Mutex
	handler    repositories.RecognitionHandler
	continuous bool
	cancel     context.CancelFunc
	audio      chan []byte
	running    bool
}

// NewGoogleRecognizer creates a recognizer. Returns
// repositories.ErrRecognitionUnsupported when no Google credentials are
// configured, so the session manager can report the capability as missing.
func NewGoogleRecognizer(config AudioConfig, logger *zap.Logger) (*GoogleRecognizer, error) {
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		return nil, repositories.ErrRecognitionUnsupported
	}
	return &GoogleRecognizer{
		config: config,
		logger: logger,
	}, nil
}

// Subscribe implements repositories.SpeechRecognizer.
func (g *GoogleRecognizer) Subscribe(h repositories.RecognitionHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handler = h
}

// SetContinuous implements repositories.SpeechRecognizer.
func (g *GoogleRecognizer) SetContinuous(on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.continuous = on
}

// Start implements repositories.SpeechRecognizer. It opens a streaming
// recognize RPC and delivers events to the subscribed handler until the
// stream ends or Stop is called.
func (g *GoogleRecognizer) Start(ctx context.Context) error {
	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		return fmt.Errorf("recognizer already started")
	}
	handler := g.handler
	continuous := g.continuous
	g.mu.Unlock()

	if handler == nil {
		return fmt.Errorf("no handler subscribed")
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create speech client: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := client.StreamingRecognize(streamCtx)
	if err != nil {
		cancel()
		client.Close()
		return fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	encoding, err := audioEncoding(g.config.Encoding)
	if err != nil {
		cancel()
		stream.CloseSend()
		client.Close()
		return err
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        encoding,
					SampleRateHertz: int32(g.config.SampleRate),
					LanguageCode:    g.config.Language,
				},
				InterimResults:  false,
				SingleUtterance: !continuous,
			},
		},
	}); err != nil {
		cancel()
		stream.CloseSend()
		client.Close()
		return fmt.Errorf("failed to send streaming config: %w", err)
	}

	audio := make(chan []byte, 32)

	g.mu.Lock()
	g.cancel = cancel
	g.audio = audio
	g.running = true
	g.mu.Unlock()

	go g.sendAudio(streamCtx, stream, audio)
	go g.receiveResults(client, stream, handler)

	handler.OnStarted()
	return nil
}

// Feed pushes an audio chunk into the current listening segment. Chunks
// arriving while no segment is active are dropped.
func (g *GoogleRecognizer) Feed(data []byte) {
	g.mu.Lock()
	audio := g.audio
	running := g.running
	g.mu.Unlock()

	if !running || len(data) == 0 {
		return
	}
	select {
	case audio <- data:
	default:
		g.logger.Warn("audio buffer full, dropping chunk", zap.Int("bytes", len(data)))
	}
}

// Stop implements repositories.SpeechRecognizer.
func (g *GoogleRecognizer) Stop() {
	g.mu.Lock()
	cancel := g.cancel
	g.cancel = nil
	g.running = false
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (g *GoogleRecognizer) sendAudio(ctx context.Context, stream speechpb.Speech_StreamingRecognizeClient, audio chan []byte) {
	for {
		select {
		case <-ctx.Done():
			stream.CloseSend()
			return
		case data := <-audio:
			if err := stream.Send(&speechpb.StreamingRecognizeRequest{
				StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
					AudioContent: data,
				},
			}); err != nil {
				g.logger.Warn("failed to send audio chunk", zap.Error(err))
				return
			}
		}
	}
}

func (g *GoogleRecognizer) receiveResults(client *speech.Client, stream speechpb.Speech_StreamingRecognizeClient, handler repositories.RecognitionHandler) {
	defer func() {
		client.Close()
		g.mu.Lock()
		g.running = false
		g.mu.Unlock()
		handler.OnEnded()
	}()

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			kind := errorKind(err)
			g.logger.Warn("recognition stream error",
				zap.String("kind", string(kind)),
				zap.Error(err))
			handler.OnError(kind)
			return
		}

		for _, result := range resp.Results {
			if result.IsFinal && len(result.Alternatives) > 0 {
				handler.OnResult(result.Alternatives[0].Transcript)
			}
		}
	}
}

// errorKind maps gRPC status codes onto the engine's error taxonomy.
func errorKind(err error) repositories.RecognitionErrorKind {
	switch status.Code(err) {
	case codes.OutOfRange, codes.DeadlineExceeded:
		return repositories.RecognitionErrNoSpeech
	case codes.Canceled, codes.Aborted:
		return repositories.RecognitionErrAborted
	case codes.PermissionDenied, codes.Unauthenticated:
		return repositories.RecognitionErrNotAllowed
	case codes.Unavailable:
		return repositories.RecognitionErrNetwork
	default:
		return repositories.RecognitionErrAborted
	}
}

// audioEncoding converts string encoding to Google Speech API enum
func audioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
