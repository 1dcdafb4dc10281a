package models

// QueryRequest is the body for POST /api/v1/query.
type QueryRequest struct {
	Question    string   `json:"question" binding:"required"`
	SessionID   string   `json:"sessionID,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	// Model overrides the session's active model for this call only.
	Model string `json:"model,omitempty"`
}

// FAQAnswerRequest is the body for POST /api/v1/faqs/answer.
type FAQAnswerRequest struct {
	Index     int    `json:"index"`
	SessionID string `json:"sessionID,omitempty"`
}
