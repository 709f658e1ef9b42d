package model

// Message roles accepted from clients
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Defaults applied to inbound chat requests
const (
	DefaultIndustry       = "strive"
	DefaultOrganizationID = "default_org"
)

// ChatMessage is a single conversation message
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/v1/chat
type ChatRequest struct {
	Messages       []ChatMessage `json:"messages"`
	Industry       string        `json:"industry,omitempty"`
	SessionID      string        `json:"sessionId"`
	OrganizationID string        `json:"organizationId,omitempty"`
}

// ValidationIssue describes one invalid request field
type ValidationIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationErrorResponse is returned with HTTP 400
type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details []ValidationIssue `json:"details"`
}

// LatestUserMessage returns the content of the last message, which drives the turn
func (r *ChatRequest) LatestUserMessage() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Content
}

// UserTurnCount counts user-authored messages
func UserTurnCount(messages []ChatMessage) int {
	n := 0
	for _, m := range messages {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// LastN returns at most n trailing messages
func LastN(messages []ChatMessage, n int) []ChatMessage {
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}
