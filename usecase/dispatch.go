package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voxballot/server/domain/entities"
	"github.com/voxballot/server/domain/repositories"
	"github.com/voxballot/server/internal/voice"
)

// invokeDelay lets spoken feedback begin before the action's visible
// effect reaches the page.
const invokeDelay = 600 * time.Millisecond

// LogoutFunc clears the voter's session and triggers navigation back to
// the login page. Supplied by the account layer.
type LogoutFunc func(ctx context.Context) error

// Dispatcher runs one synchronous pass per recognized utterance:
// normalize, route, extract the ordinal, resolve the action target, speak
// feedback, then invoke the target after a short delay. All failures are
// handled locally with a corrective spoken message; nothing propagates to
// the hosting page.
type Dispatcher struct {
	router    *voice.Router
	resolver  *voice.Resolver
	surface   repositories.Surface
	speech    repositories.SpeechSynthesizer
	scheduler *voice.Scheduler
	logout    LogoutFunc
	logger    *zap.Logger

	mu      sync.Mutex
	context entities.PageContext
	seq     uint64
}

// NewDispatcher wires the engine components for one client session.
func NewDispatcher(
	router *voice.Router,
	resolver *voice.Resolver,
	surface repositories.Surface,
	speech repositories.SpeechSynthesizer,
	scheduler *voice.Scheduler,
	logout LogoutFunc,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		router:    router,
		resolver:  resolver,
		surface:   surface,
		speech:    speech,
		scheduler: scheduler,
		logout:    logout,
		logger:    logger,
		context:   entities.ContextLogin,
	}
}

// SetContext records the page the client navigated to. Called once per
// page load.
func (d *Dispatcher) SetContext(ctx entities.PageContext) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.context = ctx
}

// Context returns the stored page context.
func (d *Dispatcher) Context() entities.PageContext {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.context
}

// Dispatch processes one recognized utterance and returns the intent it
// resolved to. The returned error reports engine-internal failures for
// logging; the voter has already heard a corrective message by then.
func (d *Dispatcher) Dispatch(ctx context.Context, text string) (entities.Intent, error) {
	d.mu.Lock()
	d.seq++
	utterance := entities.Utterance{Raw: text, Seq: d.seq, ReceivedAt: time.Now()}
	page := d.context
	d.mu.Unlock()

	cmd := entities.NormalizeCommand(utterance.Raw)
	intent := d.router.Route(page, cmd)

	d.logger.Info("utterance dispatched",
		zap.Uint64("seq", utterance.Seq),
		zap.String("context", string(page)),
		zap.String("intent", intent.String()))

	return intent, d.handle(ctx, page, cmd, intent)
}

func (d *Dispatcher) handle(ctx context.Context, page entities.PageContext, cmd entities.NormalizedCommand, intent entities.Intent) error {
	switch intent.Kind {
	case entities.IntentLogin:
		return d.speakAndInvoke(ctx, "Logging you in.", voice.SurfaceLoginButton)
	case entities.IntentClearForm:
		return d.speakAndInvoke(ctx, "Clearing the form.", voice.SurfaceClearButton)
	case entities.IntentAcknowledge:
		d.speak(ctx, "Okay.")
		return nil
	case entities.IntentNavigateToVoting:
		return d.speakAndInvoke(ctx, "Opening the voting page.", voice.SurfaceVotingNav)
	case entities.IntentReadRules:
		return d.speakAndInvoke(ctx, "Reading the voting rules.", voice.SurfaceRulesControl)
	case entities.IntentOpenProfile:
		return d.speakAndInvoke(ctx, "Opening your profile.", voice.SurfaceProfileNav)
	case entities.IntentLogout:
		return d.handleLogout(ctx)
	case entities.IntentStartVerification:
		return d.speakAndInvoke(ctx, "Starting face verification. Please look at the camera.", voice.SurfaceVerificationControl)
	case entities.IntentRetryVerification:
		return d.speakAndInvoke(ctx, "Retrying verification.", voice.SurfaceRetryVerification)
	case entities.IntentConfirmVote:
		return d.resolveAndInvoke(ctx, "Confirming your vote.", voice.TargetModalConfirm, 0)
	case entities.IntentCancelVote:
		return d.resolveAndInvoke(ctx, "Cancelled.", voice.TargetModalCancel, 0)
	case entities.IntentVoteForOrdinal:
		return d.handleVote(ctx, intent.Ordinal)
	case entities.IntentReadCandidateList:
		d.readCandidates(ctx)
		return nil
	case entities.IntentGoBack:
		return d.speakAndInvoke(ctx, "Going back.", voice.SurfaceBackControl)
	default:
		d.handleUnrecognized(ctx, page, cmd)
		return nil
	}
}

// handleVote validates the ordinal against the candidate count currently
// on the surface, then resolves and invokes the candidate's vote button.
func (d *Dispatcher) handleVote(ctx context.Context, ordinal int) error {
	if count := d.candidateCount(); count > 0 && ordinal > count {
		d.speak(ctx, fmt.Sprintf("There are only %d candidates. Please choose a number between 1 and %d.", count, count))
		return nil
	}
	return d.resolveAndInvoke(ctx,
		fmt.Sprintf("Voting for candidate %d.", ordinal),
		voice.TargetVoteButton, ordinal)
}

func (d *Dispatcher) handleLogout(ctx context.Context) error {
	d.speak(ctx, "Logging you out. Goodbye.")
	if d.logout == nil {
		return nil
	}
	if err := d.logout(ctx); err != nil {
		d.logger.Error("logout helper failed", zap.Error(err))
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// handleUnrecognized speaks contextual help, or prompts for a candidate
// number when the command looked like a vote but carried no ordinal.
func (d *Dispatcher) handleUnrecognized(ctx context.Context, page entities.PageContext, cmd entities.NormalizedCommand) {
	effective := page
	if forced, ok := d.router.DetectContextOverride(); ok {
		effective = forced
	}
	if effective == entities.ContextVoting && cmd.ContainsAny("vote", "select", "choose") {
		d.speak(ctx, "Which candidate? Say, for example, vote for candidate one.")
		return
	}
	d.speak(ctx, voice.HelpText(effective))
}

// readCandidates enumerates the candidate controls currently visible and
// speaks the list.
func (d *Dispatcher) readCandidates(ctx context.Context) {
	targets := d.voteControls()
	if len(targets) == 0 {
		d.speak(ctx, "No candidates are shown right now.")
		return
	}

	var parts []string
	for i, t := range targets {
		name := t.Label()
		if v, ok := t.Attr(voice.AttrName); ok && v != "" {
			name = v
		}
		if name == "" {
			name = fmt.Sprintf("candidate %d", i+1)
		}
		parts = append(parts, fmt.Sprintf("Candidate %d, %s", i+1, name))
	}
	d.speak(ctx, "The candidates are: "+strings.Join(parts, ". ")+".")
}

// speakAndInvoke resolves a named control, speaks, then invokes after the
// feedback delay.
func (d *Dispatcher) speakAndInvoke(ctx context.Context, feedback, controlID string) error {
	target, err := d.resolver.ResolveNamed(ctx, controlID)
	if err != nil {
		return d.reportResolutionFailure(ctx, err)
	}
	d.speak(ctx, feedback)
	d.invokeDelayed(target)
	return nil
}

// resolveAndInvoke runs a strategy-chain resolution, speaks, then invokes
// after the feedback delay.
func (d *Dispatcher) resolveAndInvoke(ctx context.Context, feedback string, kind voice.TargetKind, ordinal int) error {
	target, err := d.resolver.Resolve(ctx, kind, ordinal)
	if err != nil {
		return d.reportResolutionFailure(ctx, err)
	}
	d.speak(ctx, feedback)
	d.invokeDelayed(target)
	return nil
}

// reportResolutionFailure speaks the "item not found" outcome. The session
// continues; resolution failures never end listening.
func (d *Dispatcher) reportResolutionFailure(ctx context.Context, err error) error {
	if errors.Is(err, voice.ErrTargetNotFound) {
		d.speak(ctx, "I couldn't find that on the page. Please try again.")
		return err
	}
	// Session disposal mid-resolution; nothing to report to the voter.
	d.logger.Debug("resolution aborted", zap.Error(err))
	return err
}

// invokeDelayed triggers the target after the feedback delay so speech
// starts before the page visibly reacts. The handle is not reused after
// this dispatch.
func (d *Dispatcher) invokeDelayed(target repositories.ActionTarget) {
	d.scheduler.AfterFunc(invokeDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := target.Invoke(ctx); err != nil {
			d.logger.Error("target invocation failed",
				zap.String("target", target.ID()),
				zap.Error(err))
		}
	})
}

func (d *Dispatcher) candidateCount() int {
	return len(d.voteControls())
}

// voteControls lists the visible vote buttons. Hidden controls are stale
// leftovers from a previous render and are excluded from both the spoken
// list and the ordinal-range check.
func (d *Dispatcher) voteControls() []repositories.ActionTarget {
	var visible []repositories.ActionTarget
	for _, t := range d.surface.ListByRole(voice.RoleVote) {
		if d.surface.IsVisible(t.ID()) {
			visible = append(visible, t)
		}
	}
	return visible
}

func (d *Dispatcher) speak(ctx context.Context, text string) {
	if d.speech == nil {
		return
	}
	if err := d.speech.Speak(ctx, text, repositories.DefaultVoice()); err != nil {
		d.logger.Warn("speech feedback failed", zap.Error(err))
	}
}
