package voice

import (
	"strings"

	"go.uber.org/zap"

	"github.com/voxballot/server/domain/entities"
	"github.com/voxballot/server/domain/repositories"
)

// Router classifies normalized commands into intents using the stored page
// context, with an explicit surface-inspection override for the voting page.
type Router struct {
	surface repositories.Surface
	logger  *zap.Logger
}

// NewRouter creates a router bound to the client's interaction surface.
func NewRouter(surface repositories.Surface, logger *zap.Logger) *Router {
	return &Router{
		surface: surface,
		logger:  logger,
	}
}

// votingMarkers are the surface elements whose presence identifies the
// voting page regardless of the stored context.
var votingMarkers = []string{
	SurfaceVerificationControl,
	SurfaceVotingSection,
	SurfaceCandidateList,
}

// DetectContextOverride inspects the interaction surface for voting-page
// markers. When a marker is present, voting-context handling wins over the
// stored context, which can lag a page behind after navigation.
func (r *Router) DetectContextOverride() (entities.PageContext, bool) {
	for _, id := range votingMarkers {
		if _, ok := r.surface.FindByID(id); ok {
			return entities.ContextVoting, true
		}
	}
	return "", false
}

// Route classifies one command. First-match-wins within the context's
// priority-ordered table; at most one intent per utterance.
func (r *Router) Route(ctx entities.PageContext, cmd entities.NormalizedCommand) entities.Intent {
	if forced, ok := r.DetectContextOverride(); ok && forced != ctx {
		r.logger.Debug("context override from surface markers",
			zap.String("stored", string(ctx)),
			zap.String("forced", string(forced)))
		ctx = forced
	}

	if ctx == entities.ContextVoting {
		return r.routeVoting(cmd)
	}

	rules, ok := contextRules[ctx]
	if !ok {
		return entities.NewIntent(entities.IntentUnrecognized)
	}
	return matchRules(rules, cmd)
}

// routeVoting applies the voting context's fixed order: verification and
// modal phrases, then the gated ordinal vote, then list reading and
// navigation, then help.
func (r *Router) routeVoting(cmd entities.NormalizedCommand) entities.Intent {
	if intent := matchRules(votingRulesBeforeVote, cmd); intent.Kind != entities.IntentUnrecognized {
		return intent
	}

	if ordinal, ok := ExtractOrdinal(cmd); ok && r.looksLikeVote(cmd) {
		return entities.VoteIntent(ordinal)
	}

	return matchRules(votingRulesAfterVote, cmd)
}

// looksLikeVote gates IntentVoteForOrdinal. The gate is deliberately
// permissive: while the voting section is visible a bare number counts as a
// vote, so voters who can only produce short utterances are not excluded.
func (r *Router) looksLikeVote(cmd entities.NormalizedCommand) bool {
	if cmd.ContainsAny("vote", "select", "choose") {
		return true
	}
	visible := r.surface.IsVisible(SurfaceVotingSection)
	if visible && cmd.ContainsAny("candidate", "number") {
		return true
	}
	if ContainsWordNumber(cmd) {
		return true
	}
	return visible
}

// matchPhrase matches one phrase against the command. Short single-word
// phrases match whole words only, so "no" does not fire inside "now" or
// "know"; longer phrases keep substring matching.
func matchPhrase(cmd entities.NormalizedCommand, phrase string) bool {
	if len(phrase) <= 3 && !strings.Contains(phrase, " ") {
		return cmd.ContainsWord(phrase)
	}
	return cmd.Contains(phrase)
}

func matchRules(rules []rule, cmd entities.NormalizedCommand) entities.Intent {
	for _, rl := range rules {
		for _, phrase := range rl.phrases {
			if matchPhrase(cmd, phrase) {
				return entities.NewIntent(rl.intent)
			}
		}
	}
	return entities.NewIntent(entities.IntentUnrecognized)
}
