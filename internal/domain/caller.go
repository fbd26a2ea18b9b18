package domain

// Caller is the authenticated identity a request acts on behalf of.
// It is passed explicitly into every saga entry point; nothing reads
// identity from ambient request state.
type Caller struct {
	UserID      string
	Email       string
	BearerToken string
}
