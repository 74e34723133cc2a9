package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap/zaptest"

	"github.com/voxballot/server/adapters/surface"
	"github.com/voxballot/server/adapters/tts"
	"github.com/voxballot/server/domain/entities"
	"github.com/voxballot/server/internal/voice"
)

type invokeLog struct {
	mu  sync.Mutex
	ids []string
}

func (l *invokeLog) record(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = append(l.ids, id)
}

func (l *invokeLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ids...)
}

type dispatchFixture struct {
	mock       *clock.Mock
	scheduler  *voice.Scheduler
	surface    *surface.Memory
	speech     *tts.MockSynthesizer
	dispatcher *Dispatcher
	invoked    *invokeLog
	logouts    int
}

func (fx *dispatchFixture) lastSpoken() string {
	spoken := fx.speech.Spoken()
	if len(spoken) == 0 {
		return ""
	}
	return spoken[len(spoken)-1]
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	fx := &dispatchFixture{
		mock:    clock.NewMock(),
		speech:  tts.NewMockSynthesizer(logger),
		invoked: &invokeLog{},
	}
	fx.scheduler = voice.NewScheduler(fx.mock)
	t.Cleanup(fx.scheduler.Close)

	fx.surface = surface.NewMemory(func(ctx context.Context, e surface.Element) error {
		fx.invoked.record(e.ID)
		return nil
	})

	router := voice.NewRouter(fx.surface, logger)
	resolver := voice.NewResolver(fx.surface, fx.scheduler, logger)
	fx.dispatcher = NewDispatcher(
		router,
		resolver,
		fx.surface,
		fx.speech,
		fx.scheduler,
		func(ctx context.Context) error {
			fx.logouts++
			return nil
		},
		logger,
	)
	return fx
}

// votingSurface builds a voting page mirror with n candidate vote buttons.
func (fx *dispatchFixture) votingSurface(n int) {
	elements := []surface.Element{
		{ID: voice.SurfaceVotingSection, Role: "section", Visible: true},
		{ID: voice.SurfaceCandidateList, Role: "list", Visible: true},
	}
	for i := 1; i <= n; i++ {
		elements = append(elements, surface.Element{
			ID:          fmt.Sprintf("vote-%d", i),
			Role:        voice.RoleVote,
			ContainerID: fmt.Sprintf("candidate-%d", i),
			Visible:     true,
			Attrs: map[string]string{
				voice.AttrTarget:  fmt.Sprintf("vote-candidate-%d", i),
				voice.AttrOrdinal: strconv.Itoa(i),
				voice.AttrName:    fmt.Sprintf("Candidate %d", i),
			},
		})
	}
	fx.surface.Replace(elements)
	fx.dispatcher.SetContext(entities.ContextVoting)
}

// waitFor polls until cond holds or the deadline passes. Timer callbacks
// fire on the mock clock's goroutine, so assertions after an Add must poll.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestDispatchVoteSpeaksBeforeInvoke(t *testing.T) {
	fx := newDispatchFixture(t)
	fx.votingSurface(5)

	intent, err := fx.dispatcher.Dispatch(context.Background(), "vote for candidate 3")
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if intent.Kind != entities.IntentVoteForOrdinal || intent.Ordinal != 3 {
		t.Fatalf("unexpected intent: %s", intent)
	}

	if got := fx.lastSpoken(); got != "Voting for candidate 3." {
		t.Fatalf("unexpected feedback: %q", got)
	}
	if got := fx.invoked.snapshot(); len(got) != 0 {
		t.Fatalf("invoked before the feedback delay: %v", got)
	}

	fx.mock.Add(600 * time.Millisecond)
	waitFor(t, func() bool { return len(fx.invoked.snapshot()) == 1 })
	if got := fx.invoked.snapshot()[0]; got != "vote-3" {
		t.Fatalf("invoked wrong target: %s", got)
	}
}

func TestDispatchVoteOrdinalBeyondCandidateCount(t *testing.T) {
	fx := newDispatchFixture(t)
	fx.votingSurface(2)

	if _, err := fx.dispatcher.Dispatch(context.Background(), "vote for candidate 5"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	want := "There are only 2 candidates. Please choose a number between 1 and 2."
	if got := fx.lastSpoken(); got != want {
		t.Fatalf("unexpected feedback: %q", got)
	}

	fx.mock.Add(time.Second)
	if got := fx.invoked.snapshot(); len(got) != 0 {
		t.Fatalf("out-of-range ordinal must not invoke anything, got %v", got)
	}
}

func TestDispatchConfirmVoteResolvesModal(t *testing.T) {
	fx := newDispatchFixture(t)
	fx.votingSurface(3)
	fx.surface.Upsert(surface.Element{
		ID:          voice.SurfaceConfirmButton,
		Role:        voice.RoleConfirm,
		ContainerID: voice.SurfaceModalOverlay,
		Visible:     true,
	})

	intent, err := fx.dispatcher.Dispatch(context.Background(), "confirm")
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if intent.Kind != entities.IntentConfirmVote {
		t.Fatalf("unexpected intent: %s", intent)
	}
	if got := fx.lastSpoken(); got != "Confirming your vote." {
		t.Fatalf("unexpected feedback: %q", got)
	}

	fx.mock.Add(600 * time.Millisecond)
	waitFor(t, func() bool { return len(fx.invoked.snapshot()) == 1 })
	if got := fx.invoked.snapshot()[0]; got != voice.SurfaceConfirmButton {
		t.Fatalf("invoked wrong target: %s", got)
	}
}

func TestDispatchLoginCommand(t *testing.T) {
	fx := newDispatchFixture(t)
	fx.surface.Replace([]surface.Element{
		{ID: voice.SurfaceLoginButton, Role: voice.RoleButton, Visible: true},
	})
	fx.dispatcher.SetContext(entities.ContextLogin)

	intent, err := fx.dispatcher.Dispatch(context.Background(), "login")
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if intent.Kind != entities.IntentLogin {
		t.Fatalf("unexpected intent: %s", intent)
	}

	fx.mock.Add(600 * time.Millisecond)
	waitFor(t, func() bool { return len(fx.invoked.snapshot()) == 1 })
	if got := fx.invoked.snapshot()[0]; got != voice.SurfaceLoginButton {
		t.Fatalf("invoked wrong target: %s", got)
	}
}

func TestDispatchLogoutCallsHelper(t *testing.T) {
	fx := newDispatchFixture(t)
	fx.dispatcher.SetContext(entities.ContextHome)

	if _, err := fx.dispatcher.Dispatch(context.Background(), "log out"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if fx.logouts != 1 {
		t.Fatalf("logout helper called %d times, want 1", fx.logouts)
	}
	if got := fx.lastSpoken(); got != "Logging you out. Goodbye." {
		t.Fatalf("unexpected feedback: %q", got)
	}
}

func TestDispatchUnrecognizedSpeaksContextualHelp(t *testing.T) {
	fx := newDispatchFixture(t)
	fx.dispatcher.SetContext(entities.ContextHome)

	intent, err := fx.dispatcher.Dispatch(context.Background(), "make me a sandwich")
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if intent.Kind != entities.IntentUnrecognized {
		t.Fatalf("unexpected intent: %s", intent)
	}
	if got := fx.lastSpoken(); got != voice.HelpText(entities.ContextHome) {
		t.Fatalf("unexpected help text: %q", got)
	}
}

func TestDispatchVoteWordWithoutOrdinalPrompts(t *testing.T) {
	fx := newDispatchFixture(t)
	fx.votingSurface(3)

	if _, err := fx.dispatcher.Dispatch(context.Background(), "vote"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	want := "Which candidate? Say, for example, vote for candidate one."
	if got := fx.lastSpoken(); got != want {
		t.Fatalf("unexpected prompt: %q", got)
	}
}

func TestDispatchResolutionFailureSpoken(t *testing.T) {
	fx := newDispatchFixture(t)
	// Voting page with no confirm control anywhere: every strategy misses,
	// including the retry.
	fx.surface.Replace([]surface.Element{
		{ID: voice.SurfaceVotingSection, Role: "section", Visible: true},
	})
	fx.dispatcher.SetContext(entities.ContextVoting)

	errCh := make(chan error, 1)
	go func() {
		_, err := fx.dispatcher.Dispatch(context.Background(), "confirm")
		errCh <- err
	}()

	// First pass misses; the dispatch blocks in the retry sleep.
	waitFor(t, func() bool { return fx.scheduler.Pending() == 1 })
	fx.mock.Add(400 * time.Millisecond)

	select {
	case err := <-errCh:
		if !errors.Is(err, voice.ErrTargetNotFound) {
			t.Fatalf("Dispatch() error = %v, want ErrTargetNotFound", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch did not return after retry")
	}

	if got := fx.lastSpoken(); got != "I couldn't find that on the page. Please try again." {
		t.Fatalf("unexpected feedback: %q", got)
	}
	if got := fx.invoked.snapshot(); len(got) != 0 {
		t.Fatalf("failed resolution must not invoke, got %v", got)
	}
}

func TestDispatchReadCandidates(t *testing.T) {
	fx := newDispatchFixture(t)
	fx.votingSurface(2)

	if _, err := fx.dispatcher.Dispatch(context.Background(), "read candidates"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	want := "The candidates are: Candidate 1, Candidate 1. Candidate 2, Candidate 2."
	if got := fx.lastSpoken(); got != want {
		t.Fatalf("unexpected list: %q", got)
	}
}

func TestDispatchHiddenCandidatesExcluded(t *testing.T) {
	fx := newDispatchFixture(t)
	fx.votingSurface(2)
	fx.surface.Upsert(surface.Element{
		ID:          "vote-3",
		Role:        voice.RoleVote,
		ContainerID: "candidate-3",
		Visible:     false,
		Attrs: map[string]string{
			voice.AttrOrdinal: "3",
			voice.AttrName:    "Candidate 3",
		},
	})

	if _, err := fx.dispatcher.Dispatch(context.Background(), "read candidates"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	want := "The candidates are: Candidate 1, Candidate 1. Candidate 2, Candidate 2."
	if got := fx.lastSpoken(); got != want {
		t.Fatalf("hidden candidate leaked into the list: %q", got)
	}

	if _, err := fx.dispatcher.Dispatch(context.Background(), "vote for candidate 3"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	want = "There are only 2 candidates. Please choose a number between 1 and 2."
	if got := fx.lastSpoken(); got != want {
		t.Fatalf("hidden candidate counted in the range check: %q", got)
	}
}

func TestDispatchContextOverrideFromStaleContext(t *testing.T) {
	fx := newDispatchFixture(t)
	fx.votingSurface(4)
	// The stored context lags a page behind the rendered surface.
	fx.dispatcher.SetContext(entities.ContextHome)

	intent, err := fx.dispatcher.Dispatch(context.Background(), "vote for candidate 2")
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if intent.Kind != entities.IntentVoteForOrdinal || intent.Ordinal != 2 {
		t.Fatalf("override did not reroute: %s", intent)
	}
}
