package voice

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/voxballot/server/domain/entities"
	"github.com/voxballot/server/domain/repositories"
)

type fakeRecognizer struct {
	mu         sync.Mutex
	handler    repositories.RecognitionHandler
	starts     int
	stops      int
	continuous bool
	startErr   error
}

func (f *fakeRecognizer) Start(ctx context.Context) error {
	f.mu.Lock()
	f.starts++
	err := f.startErr
	h := f.handler
	f.mu.Unlock()
	if err != nil {
		return err
	}
	h.OnStarted()
	return nil
}

func (f *fakeRecognizer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeRecognizer) SetContinuous(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.continuous = on
}

func (f *fakeRecognizer) Subscribe(h repositories.RecognitionHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

func (f *fakeRecognizer) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

type fakeSynthesizer struct {
	mu     sync.Mutex
	spoken []string
}

func (f *fakeSynthesizer) Speak(ctx context.Context, text string, opts repositories.VoiceOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	return nil
}

func (f *fakeSynthesizer) Stop() {}

func (f *fakeSynthesizer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.spoken)
}

type managerFixture struct {
	manager    *Manager
	recognizer *fakeRecognizer
	speech     *fakeSynthesizer
	mock       *clock.Mock
	scheduler  *Scheduler

	mu       sync.Mutex
	statuses []entities.ListeningStatus
	results  []string
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	f := &managerFixture{
		recognizer: &fakeRecognizer{},
		speech:     &fakeSynthesizer{},
		mock:       clock.NewMock(),
	}
	f.scheduler = NewScheduler(f.mock)
	f.manager = NewManager(
		f.recognizer,
		f.speech,
		f.scheduler,
		func(s entities.ListeningStatus) {
			f.mu.Lock()
			f.statuses = append(f.statuses, s)
			f.mu.Unlock()
		},
		func(text string) {
			f.mu.Lock()
			f.results = append(f.results, text)
			f.mu.Unlock()
		},
		zap.NewNop(),
	)
	return f
}

func TestToggleFromIdleStartsListening(t *testing.T) {
	f := newManagerFixture(t)

	if err := f.manager.Toggle(context.Background()); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}

	state := f.manager.State()
	if !state.AlwaysOn {
		t.Error("AlwaysOn = false after toggle on")
	}
	if state.Phase != entities.ListeningActive {
		t.Errorf("phase = %s, want %s", state.Phase, entities.ListeningActive)
	}
	if !f.recognizer.continuous {
		t.Error("recognizer not set to continuous in always-on mode")
	}
	if f.speech.count() == 0 {
		t.Error("toggle on was not announced via speech")
	}
}

func TestTransientErrorSchedulesSingleRestart(t *testing.T) {
	f := newManagerFixture(t)
	if err := f.manager.Toggle(context.Background()); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}

	f.recognizer.handler.OnError(repositories.RecognitionErrNoSpeech)

	if got := f.manager.State().Phase; got != entities.ListeningRestarting {
		t.Fatalf("phase = %s, want %s", got, entities.ListeningRestarting)
	}
	if f.scheduler.Pending() != 1 {
		t.Fatalf("pending restarts = %d, want exactly 1", f.scheduler.Pending())
	}

	// A second transient error while a restart is pending must not stack
	// another timer.
	f.recognizer.handler.OnError(repositories.RecognitionErrAborted)
	if f.scheduler.Pending() != 1 {
		t.Fatalf("pending restarts after second error = %d, want 1", f.scheduler.Pending())
	}

	f.mock.Add(restartDelay)
	if got := f.recognizer.startCount(); got != 2 {
		t.Errorf("recognizer starts = %d, want 2 after restart", got)
	}
	if got := f.manager.State().Phase; got != entities.ListeningActive {
		t.Errorf("phase after restart = %s, want %s", got, entities.ListeningActive)
	}
}

func TestPermissionDeniedDisablesAlwaysOn(t *testing.T) {
	f := newManagerFixture(t)
	if err := f.manager.Toggle(context.Background()); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}

	f.recognizer.handler.OnError(repositories.RecognitionErrNotAllowed)

	state := f.manager.State()
	if state.AlwaysOn {
		t.Error("AlwaysOn still set after permission denial")
	}
	if state.Phase != entities.ListeningIdle {
		t.Errorf("phase = %s, want %s", state.Phase, entities.ListeningIdle)
	}
	if f.scheduler.Pending() != 0 {
		t.Errorf("restart scheduled after permission denial: pending = %d", f.scheduler.Pending())
	}
}

func TestPermissionDeniedCancelsPendingRestart(t *testing.T) {
	f := newManagerFixture(t)
	if err := f.manager.Toggle(context.Background()); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}

	f.recognizer.handler.OnError(repositories.RecognitionErrNoSpeech)
	if f.scheduler.Pending() != 1 {
		t.Fatalf("pending restarts = %d, want 1", f.scheduler.Pending())
	}

	f.recognizer.handler.OnError(repositories.RecognitionErrNotAllowed)
	if f.scheduler.Pending() != 0 {
		t.Errorf("restart still pending after permission denial: %d", f.scheduler.Pending())
	}

	f.mock.Add(restartDelay)
	if got := f.recognizer.startCount(); got != 1 {
		t.Errorf("recognizer restarted after permission denial: starts = %d", got)
	}
	if f.manager.State().AlwaysOn {
		t.Error("AlwaysOn still set after permission denial")
	}
}

func TestEndedRestartsOnlyWhenAlwaysOn(t *testing.T) {
	f := newManagerFixture(t)
	if err := f.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	f.recognizer.handler.OnEnded()
	if got := f.manager.State().Phase; got != entities.ListeningIdle {
		t.Errorf("phase after ended without always-on = %s, want idle", got)
	}
	if f.scheduler.Pending() != 0 {
		t.Errorf("restart scheduled without always-on: pending = %d", f.scheduler.Pending())
	}

	if err := f.manager.Toggle(context.Background()); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	f.recognizer.handler.OnEnded()
	if f.scheduler.Pending() != 1 {
		t.Errorf("pending restarts = %d, want 1 with always-on", f.scheduler.Pending())
	}
}

func TestStopCancelsPendingRestart(t *testing.T) {
	f := newManagerFixture(t)
	if err := f.manager.Toggle(context.Background()); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	f.recognizer.handler.OnError(repositories.RecognitionErrNoSpeech)
	if f.scheduler.Pending() != 1 {
		t.Fatalf("pending restarts = %d, want 1", f.scheduler.Pending())
	}

	f.manager.Stop()

	if f.scheduler.Pending() != 0 {
		t.Errorf("pending restarts after Stop = %d, want 0", f.scheduler.Pending())
	}
	f.mock.Add(restartDelay)
	if got := f.recognizer.startCount(); got != 1 {
		t.Errorf("recognizer restarted after Stop: starts = %d", got)
	}
}

func TestStartUnsupportedCapability(t *testing.T) {
	f := newManagerFixture(t)
	f.recognizer.startErr = repositories.ErrRecognitionUnsupported

	err := f.manager.Start(context.Background())
	if !errors.Is(err, repositories.ErrRecognitionUnsupported) {
		t.Fatalf("Start = %v, want ErrRecognitionUnsupported", err)
	}
	if got := f.manager.State().Phase; got != entities.ListeningIdle {
		t.Errorf("phase = %s, want idle after unsupported capability", got)
	}
}

func TestResultsForwardedToSink(t *testing.T) {
	f := newManagerFixture(t)
	if err := f.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	f.recognizer.handler.OnResult("vote for candidate 3")

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.results) != 1 || f.results[0] != "vote for candidate 3" {
		t.Errorf("sink received %v, want the recognized utterance", f.results)
	}
}
