package entities

import "fmt"

// IntentKind classifies the meaning of a spoken command within a page context.
type IntentKind string

const (
	IntentLogin             IntentKind = "login"
	IntentClearForm         IntentKind = "clear_form"
	IntentAcknowledge       IntentKind = "acknowledge"
	IntentNavigateToVoting  IntentKind = "navigate_to_voting"
	IntentReadRules         IntentKind = "read_rules"
	IntentOpenProfile       IntentKind = "open_profile"
	IntentLogout            IntentKind = "logout"
	IntentStartVerification IntentKind = "start_verification"
	IntentRetryVerification IntentKind = "retry_verification"
	IntentConfirmVote       IntentKind = "confirm_vote"
	IntentCancelVote        IntentKind = "cancel_vote"
	IntentVoteForOrdinal    IntentKind = "vote_for_ordinal"
	IntentReadCandidateList IntentKind = "read_candidate_list"
	IntentGoBack            IntentKind = "go_back"
	IntentUnrecognized      IntentKind = "unrecognized"
)

// Intent is the classified meaning of one utterance. At most one Intent is
// produced per utterance; Ordinal is meaningful only for IntentVoteForOrdinal.
type Intent struct {
	Kind    IntentKind
	Ordinal int
}

// NewIntent returns an intent without an ordinal.
func NewIntent(kind IntentKind) Intent {
	return Intent{Kind: kind}
}

// VoteIntent returns a vote intent carrying the 1-based candidate ordinal.
func VoteIntent(ordinal int) Intent {
	return Intent{Kind: IntentVoteForOrdinal, Ordinal: ordinal}
}

func (i Intent) String() string {
	if i.Kind == IntentVoteForOrdinal {
		return fmt.Sprintf("%s(%d)", i.Kind, i.Ordinal)
	}
	return string(i.Kind)
}
