package groq

import "fmt"

// Role tags a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System returns a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Assistant returns an assistant message.
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// ChatRequest is the body of POST /openai/v1/chat/completions.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// Choice is one completion returned by the provider.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// ChatResponse is the success body of a chat completion.
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Model   string   `json:"model"`
	Created int64    `json:"created"`
	Choices []Choice `json:"choices"`
}

// Content returns the text of the first choice. A response without choices
// is malformed.
func (r *ChatResponse) Content() (string, error) {
	if r == nil || len(r.Choices) == 0 {
		return "", fmt.Errorf("groq chat: %w: no choices in response", ErrMalformedResponse)
	}
	return r.Choices[0].Message.Content, nil
}

// Model describes one entry of GET /openai/v1/models. Only ID is required.
type Model struct {
	ID            string `json:"id"`
	Object        string `json:"object,omitempty"`
	Created       int64  `json:"created,omitempty"`
	OwnedBy       string `json:"owned_by,omitempty"`
	Active        bool   `json:"active,omitempty"`
	ContextWindow int    `json:"context_window,omitempty"`
}

type modelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// APIError is the error payload the provider returns as {"error": {...}}.
type APIError struct {
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`
	Code       string `json:"code,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = "unknown provider error"
	}
	switch {
	case e.Code != "" && e.StatusCode != 0:
		return fmt.Sprintf("%s (code=%s, status=%d)", msg, e.Code, e.StatusCode)
	case e.Code != "":
		return fmt.Sprintf("%s (code=%s)", msg, e.Code)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s (status=%d)", msg, e.StatusCode)
	}
	return msg
}

// Unwrap lets errors.Is(err, ErrProvider) match any *APIError.
func (e *APIError) Unwrap() error { return ErrProvider }
