package models

// Roles for conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is a single message in a session's transcript.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DocumentFragment is a chunk of an uploaded document returned by the
// vector store for one query. Fragments live for a single call.
type DocumentFragment struct {
	Text       string `json:"text"`
	SourceRank int    `json:"sourceRank"`
}

// FAQ is one entry of the canned question catalogue.
type FAQ struct {
	Question string `json:"question"`
	Category string `json:"category"`
}
