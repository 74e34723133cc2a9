package voice

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voxballot/server/domain/entities"
	"github.com/voxballot/server/domain/repositories"
)

// restartDelay is the fixed pause before an automatic restart after a
// transient recognition error or end-of-segment in always-on mode.
const restartDelay = 300 * time.Millisecond

// StatusObserver receives listening-state updates. Purely informational;
// the manager never blocks waiting for acknowledgment.
type StatusObserver func(entities.ListeningStatus)

// ResultSink receives each recognized utterance for dispatch.
type ResultSink func(text string)

// Manager owns the continuous-listening lifecycle: start, stop, always-on
// auto-restart after transient failures, and status feedback. It is the
// sole writer of the listening state.
type Manager struct {
	recognizer  repositories.SpeechRecognizer
	synthesizer repositories.SpeechSynthesizer
	scheduler   *Scheduler
	observer    StatusObserver
	sink        ResultSink
	logger      *zap.Logger

	mu            sync.Mutex
	phase         entities.ListeningPhase
	alwaysOn      bool
	cancelRestart func()
}

// NewManager wires the lifecycle around a recognizer. The manager
// subscribes itself as the recognizer's event handler.
func NewManager(
	recognizer repositories.SpeechRecognizer,
	synthesizer repositories.SpeechSynthesizer,
	scheduler *Scheduler,
	observer StatusObserver,
	sink ResultSink,
	logger *zap.Logger,
) *Manager {
	m := &Manager{
		recognizer:  recognizer,
		synthesizer: synthesizer,
		scheduler:   scheduler,
		observer:    observer,
		sink:        sink,
		logger:      logger,
		phase:       entities.ListeningIdle,
	}
	recognizer.Subscribe(m)
	return m
}

// State returns the current listening state.
func (m *Manager) State() entities.ListeningState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return entities.ListeningState{Phase: m.phase, AlwaysOn: m.alwaysOn}
}

// Start requests a new listening segment. A missing recognition capability
// is reported and leaves the state untouched.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.phase == entities.ListeningStarting || m.phase == entities.ListeningActive {
		m.mu.Unlock()
		return nil
	}
	m.setPhaseLocked(entities.ListeningStarting, "Starting voice control…", false)
	continuous := m.alwaysOn
	m.mu.Unlock()

	m.recognizer.SetContinuous(continuous)
	if err := m.recognizer.Start(ctx); err != nil {
		m.mu.Lock()
		m.setPhaseLocked(entities.ListeningIdle, "Voice control unavailable", false)
		m.mu.Unlock()

		if errors.Is(err, repositories.ErrRecognitionUnsupported) {
			m.logger.Warn("recognition capability missing")
			return err
		}
		return err
	}
	return nil
}

// Stop ends the session. Pending auto-restarts are cancelled: stopping
// means stopping, not stopping until the next timer fires.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.cancelRestart != nil {
		m.cancelRestart()
		m.cancelRestart = nil
	}
	m.setPhaseLocked(entities.ListeningIdle, "Voice control off", false)
	m.mu.Unlock()

	m.recognizer.Stop()
}

// Toggle flips always-on mode, announcing the change via speech.
func (m *Manager) Toggle(ctx context.Context) error {
	m.mu.Lock()
	m.alwaysOn = !m.alwaysOn
	on := m.alwaysOn
	m.mu.Unlock()

	if on {
		m.speak(ctx, "Voice control enabled. I am listening.")
		return m.Start(ctx)
	}
	m.speak(ctx, "Voice control disabled.")
	m.Stop()
	return nil
}

// OnStarted implements repositories.RecognitionHandler.
func (m *Manager) OnStarted() {
	m.mu.Lock()
	m.setPhaseLocked(entities.ListeningActive, "Listening…", true)
	m.mu.Unlock()
}

// OnResult implements repositories.RecognitionHandler.
func (m *Manager) OnResult(text string) {
	m.logger.Debug("utterance received", zap.String("text", text))
	if m.sink != nil {
		m.sink(text)
	}
}

// OnError implements repositories.RecognitionHandler. Transient errors in
// always-on mode schedule exactly one delayed restart. Permission denial is
// terminal for the session until the user re-enables it.
func (m *Manager) OnError(kind repositories.RecognitionErrorKind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case kind == repositories.RecognitionErrNotAllowed:
		// Denial is terminal: a restart scheduled by an earlier transient
		// error must not revive the engine.
		if m.cancelRestart != nil {
			m.cancelRestart()
			m.cancelRestart = nil
		}
		m.alwaysOn = false
		m.setPhaseLocked(entities.ListeningIdle, "Microphone permission denied", false)
		go m.speak(context.Background(), "Microphone access was denied. Voice control is off until you enable it again.")

	case kind.Transient() && m.alwaysOn:
		m.scheduleRestartLocked()

	default:
		m.logger.Warn("recognition error", zap.String("kind", string(kind)))
		m.setPhaseLocked(entities.ListeningIdle, "Voice control stopped", false)
	}
}

// OnEnded implements repositories.RecognitionHandler.
func (m *Manager) OnEnded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.alwaysOn {
		m.scheduleRestartLocked()
		return
	}
	m.setPhaseLocked(entities.ListeningIdle, "Voice control off", false)
}

// Close disposes the session: stops the engine and cancels any pending
// restart.
func (m *Manager) Close() {
	m.Stop()
}

func (m *Manager) scheduleRestartLocked() {
	if m.cancelRestart != nil {
		// A restart is already pending; transient errors and segment ends
		// can arrive back to back.
		return
	}
	m.setPhaseLocked(entities.ListeningRestarting, "Reconnecting voice control…", false)
	m.cancelRestart = m.scheduler.AfterFunc(restartDelay, func() {
		m.mu.Lock()
		m.cancelRestart = nil
		m.phase = entities.ListeningIdle
		m.mu.Unlock()
		if err := m.Start(context.Background()); err != nil {
			m.logger.Warn("auto-restart failed", zap.Error(err))
		}
	})
}

func (m *Manager) setPhaseLocked(phase entities.ListeningPhase, text string, active bool) {
	m.phase = phase
	if m.observer != nil {
		m.observer(entities.ListeningStatus{Text: text, Active: active})
	}
}

func (m *Manager) speak(ctx context.Context, text string) {
	if m.synthesizer == nil {
		return
	}
	if err := m.synthesizer.Speak(ctx, text, repositories.DefaultVoice()); err != nil {
		m.logger.Warn("speech feedback failed", zap.Error(err))
	}
}
