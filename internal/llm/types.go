package llm

// Role is the sender of a chat message. Diagram requests only send a system
// instruction and a user instruction.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one chat message.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is one diagram request as sent to a provider.
type CompletionRequest struct {
	// Label names what the request is for (a section title or batch job) in
	// rate limit and retry logs. It is not sent to the provider.
	Label       string
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// CompletionResponse is the provider's reply.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	// Truncated is set when the reply stopped at the token limit, which
	// usually leaves the diagram unfinished.
	Truncated bool
}
