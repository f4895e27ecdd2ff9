package ollama

// GenerateRequest represents a generate request to Ollama
type GenerateRequest struct {
	Model  string `json:"model"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// GenerateResponse represents a streaming response chunk from Ollama
type GenerateResponse struct {
	Model      string `json:"model"`
	CreatedAt  string `json:"created_at"`
	Response   string `json:"response"`
	Thinking   string `json:"thinking"` // For reasoning models like deepseek-r1
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason,omitempty"`
	Error      string `json:"error,omitempty"`
	EvalCount  int    `json:"eval_count,omitempty"`
}

// Sentinel chunks delimiting a thinking section in the text stream
const (
	ThinkOpen  = "<think>"
	ThinkClose = "</think>"
)
