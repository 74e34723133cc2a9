package entities

// ListeningPhase is the lifecycle phase of the continuous-listening session.
// The Listening Session Manager is the only writer.
type ListeningPhase string

const (
	ListeningIdle       ListeningPhase = "idle"
	ListeningStarting   ListeningPhase = "starting"
	ListeningActive     ListeningPhase = "listening"
	ListeningRestarting ListeningPhase = "restarting"
)

// ListeningState combines the phase with the always-on flag.
type ListeningState struct {
	Phase    ListeningPhase `json:"phase"`
	AlwaysOn bool           `json:"always_on"`
}

// ListeningStatus is the observable status pushed to the UI on every
// transition. Purely informational, no feedback into the engine.
type ListeningStatus struct {
	Text   string `json:"text"`
	Active bool   `json:"active"`
}
