package models

// QueryResponse is the result of answering a legal question. Answer is
// always a displayable string, even when the model call failed.
type QueryResponse struct {
	Answer    string             `json:"answer"`
	Model     string             `json:"model"`
	SessionID string             `json:"sessionID"`
	Sources   []DocumentFragment `json:"sources,omitempty"`
	// ShortCircuited is true when the answer is a recap of the previous
	// exchange and no model call was made.
	ShortCircuited bool `json:"shortCircuited,omitempty"`
}

// ProcessDocumentsResponse reports the outcome of a document upload.
type ProcessDocumentsResponse struct {
	Message   string `json:"message"`
	Files     int    `json:"files"`
	Chunks    int    `json:"chunks"`
	SessionID string `json:"sessionID"`
}

// HistoryResponse is the session's conversation transcript.
type HistoryResponse struct {
	SessionID string             `json:"sessionID"`
	Turns     []ConversationTurn `json:"turns"`
}

// FAQListResponse is the canned FAQ catalogue.
type FAQListResponse struct {
	FAQs []FAQ `json:"faqs"`
}
