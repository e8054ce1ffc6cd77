package domain

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single message in a conversation. History is supplied by the
// caller on every request; the server holds no session state.
type Turn struct {
	// Role is "user" or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// Answer is a grounded chat response.
type Answer struct {
	// Text is the generated answer.
	Text string

	// Sources is the deduplicated, ascending set of page numbers of the
	// chunks supplied as context, whether or not the text cites them.
	Sources []int
}
