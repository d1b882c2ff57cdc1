package domain

// EnhanceRequest is the body of POST /api/enhance-prompt.
type EnhanceRequest struct {
	Prompt    string `json:"prompt" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
}

// EnhanceResponse carries both levels of intent back to the client.
type EnhanceResponse struct {
	OriginalPrompt string `json:"originalPrompt"`
	EnhancedPrompt string `json:"enhancedPrompt"`
}

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Prompt       string `json:"prompt" validate:"required"`
	SessionID    string `json:"session_id" validate:"required"`
	UsedEnhanced bool   `json:"usedEnhanced"`
}

// ModifyRequest is the body of POST /api/modify.
type ModifyRequest struct {
	Prompt      string `json:"prompt" validate:"required"`
	CurrentCode string `json:"currentCode" validate:"required"`
	SessionID   string `json:"session_id" validate:"required"`
}

// CodeResponse is returned by generate and modify. ChatHistory is the full
// conversation including the system seed.
type CodeResponse struct {
	Code        string    `json:"code"`
	ChatHistory []Message `json:"chatHistory"`
}

// HistoryResponse is returned by GET /api/history/:session_id.
type HistoryResponse struct {
	ChatHistory []Message `json:"chatHistory"`
}

// ExportRequest is the body of POST /api/export-html.
type ExportRequest struct {
	HTMLContent string `json:"htmlContent" validate:"required"`
}

// DeployRequest is the body of POST /api/deploy.
type DeployRequest struct {
	HTMLContent string `json:"htmlContent" validate:"required"`
	SiteName    string `json:"siteName,omitempty"`
}

// DeployResponse describes a simulated deployment.
type DeployResponse struct {
	URL       string `json:"url"`
	SiteName  string `json:"siteName"`
	Simulated bool   `json:"simulated"`
}

// PreviewRequest is the body of POST /api/preview.
type PreviewRequest struct {
	SessionID       string `json:"session_id" validate:"required"`
	HTMLContent     string `json:"htmlContent" validate:"required"`
	HighlightPrompt string `json:"highlightPrompt,omitempty"`
}

// PreviewResponse identifies the frame a document was rendered into.
type PreviewResponse struct {
	FrameID string `json:"frameId"`
	Token   string `json:"token"`
	URL     string `json:"url"`
}

// ErrorResponse is the JSON error envelope used by every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}
