package voice

import "github.com/voxballot/server/domain/entities"

// Well-known interaction-surface identifiers and attributes. The hosting
// client renders with these conventions; the resolver's fallback chains
// exist because not every render path applies all of them.
const (
	SurfaceVerificationControl = "start-verification"
	SurfaceVotingSection       = "voting-section"
	SurfaceCandidateList       = "candidate-list"
	SurfaceConfirmButton       = "confirm-vote-btn"
	SurfaceCancelButton        = "cancel-vote-btn"
	SurfaceModalOverlay        = "modal-overlay"
	SurfaceLoginButton         = "login-btn"
	SurfaceClearButton         = "clear-form-btn"
	SurfaceVotingNav           = "go-to-voting"
	SurfaceRulesControl        = "read-rules"
	SurfaceProfileNav          = "profile-link"
	SurfaceLogoutControl       = "logout-btn"
	SurfaceBackControl         = "back-btn"
	SurfaceRetryVerification   = "retry-verification"

	AttrTarget  = "data-target"
	AttrOrdinal = "data-ordinal"
	AttrName    = "data-name"

	RoleButton  = "button"
	RoleVote    = "vote"
	RoleConfirm = "confirm"
	RoleCancel  = "cancel"
)

// rule binds a priority-ordered phrase set to an intent. Within a context
// the first rule whose phrases match wins.
type rule struct {
	intent  entities.IntentKind
	phrases []string
}

// Per-context tables. Order is load-bearing: it defines disambiguation
// (e.g. "back" on the login page acknowledges, on the voting page it
// navigates).
var loginRules = []rule{
	{entities.IntentLogin, []string{"log in", "login", "sign in", "submit"}},
	{entities.IntentClearForm, []string{"clear", "reset", "start over"}},
	{entities.IntentAcknowledge, []string{"back", "stop", "okay", "ok"}},
}

var homeRules = []rule{
	{entities.IntentNavigateToVoting, []string{"start voting", "vote now", "go to voting", "voting", "cast my vote"}},
	{entities.IntentReadRules, []string{"read rules", "rules", "instructions", "how to vote"}},
	{entities.IntentOpenProfile, []string{"my profile", "profile", "account"}},
	{entities.IntentLogout, []string{"log out", "logout", "sign out"}},
}

// The voting context checks verification and modal phrases before the
// ordinal-vote gate, and list/navigation phrases after it. The gate itself
// lives in the router since it depends on the extracted ordinal and the
// visible surface, not on a phrase list.
var votingRulesBeforeVote = []rule{
	{entities.IntentStartVerification, []string{"start verification", "verify me", "verification", "verify", "face check"}},
	{entities.IntentConfirmVote, []string{"confirm vote", "yes confirm", "confirm", "yes"}},
	{entities.IntentCancelVote, []string{"cancel vote", "cancel", "no"}},
}

var votingRulesAfterVote = []rule{
	{entities.IntentReadCandidateList, []string{"read candidates", "list candidates", "candidates", "who are the candidates", "read the list"}},
	{entities.IntentGoBack, []string{"go back", "back", "home"}},
}

var faceVerificationRules = []rule{
	{entities.IntentStartVerification, []string{"start verification", "start", "verify", "scan", "begin"}},
	{entities.IntentRetryVerification, []string{"try again", "retry", "again"}},
	{entities.IntentGoBack, []string{"go back", "back", "cancel"}},
}

var contextRules = map[entities.PageContext][]rule{
	entities.ContextLogin:            loginRules,
	entities.ContextHome:             homeRules,
	entities.ContextFaceVerification: faceVerificationRules,
}

// wordNumbers maps spoken number words to ordinals. Scanned in table order;
// for a command containing several number words the earliest table entry
// wins, not the earliest word in the utterance.
var wordNumbers = []struct {
	word  string
	value int
}{
	{"one", 1},
	{"two", 2},
	{"three", 3},
	{"four", 4},
	{"five", 5},
	{"six", 6},
	{"seven", 7},
	{"eight", 8},
	{"nine", 9},
	{"ten", 10},
}

// helpText is the spoken contextual help for unrecognized commands.
var helpText = map[entities.PageContext]string{
	entities.ContextLogin:            "You can say: login, clear, or read the form aloud.",
	entities.ContextHome:             "You can say: start voting, read rules, my profile, or log out.",
	entities.ContextVoting:           "You can say: vote for candidate one, confirm, cancel, read candidates, or go back.",
	entities.ContextFaceVerification: "You can say: start verification, try again, or go back.",
}

// HelpText returns the contextual help phrase spoken for unrecognized
// commands on the given page.
func HelpText(ctx entities.PageContext) string {
	if t, ok := helpText[ctx]; ok {
		return t
	}
	return helpText[entities.ContextHome]
}
