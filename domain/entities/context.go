package entities

// PageContext identifies the logical page the voter currently occupies.
// It is set once per page load by the hosting client and stays immutable
// until the next navigation.
type PageContext string

const (
	ContextLogin            PageContext = "login"
	ContextHome             PageContext = "home"
	ContextVoting           PageContext = "voting"
	ContextFaceVerification PageContext = "face_verification"
)

// Valid reports whether the context is one of the known pages.
func (c PageContext) Valid() bool {
	switch c {
	case ContextLogin, ContextHome, ContextVoting, ContextFaceVerification:
		return true
	}
	return false
}
