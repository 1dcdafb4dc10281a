package services

import (
	"context"
	"log"
	"strings"

	"github.com/Mallik-vinukonda/Legal-RAG-chatBot/models"
)

const (
	// retrievalK is how many fragments to pull from the vector store per
	// question.
	retrievalK = 3

	// recapLineCount is how many lines of the previous answer the
	// duplicate shortcut repeats.
	recapLineCount = 5

	recapSuffix = "You already asked this question. Here is a quick recap; ask a follow-up if you'd like more detail."
)

// ChatService runs the full question-answering pipeline: duplicate check,
// retrieval, prompt construction, model call, formatting, and transcript
// bookkeeping. Every question ends in a displayable answer.
type ChatService struct {
	store     *SessionStore
	retriever Retriever
	gemini    *GeminiService
}

// NewChatService wires the pipeline together.
func NewChatService(store *SessionStore, retriever Retriever, gemini *GeminiService) *ChatService {
	return &ChatService{
		store:     store,
		retriever: retriever,
		gemini:    gemini,
	}
}

// Ask answers a legal question for the request's session.
func (c *ChatService) Ask(ctx context.Context, req models.QueryRequest) *models.QueryResponse {
	state := c.store.Get(req.SessionID)
	log.Printf("SERVICE: answering question for session %s: %q", state.ID(), req.Question)

	if recap, ok := c.shortCircuit(state, req.Question); ok {
		log.Printf("SERVICE: duplicate question for session %s, returning recap", state.ID())
		state.AppendTurn(models.RoleUser, req.Question)
		state.AppendTurn(models.RoleAssistant, recap)
		return &models.QueryResponse{
			Answer:         recap,
			Model:          state.ActiveModel(),
			SessionID:      state.ID(),
			ShortCircuited: true,
		}
	}

	state.AppendTurn(models.RoleUser, req.Question)

	// Retrieval failures degrade to a context-free answer rather than
	// aborting the question.
	var fragments []models.DocumentFragment
	if state.DocumentsIndexed() {
		var err error
		fragments, err = c.retriever.Retrieve(ctx, state.ID(), req.Question, retrievalK)
		if err != nil {
			log.Printf("WARN: document retrieval failed for session %s: %v", state.ID(), err)
			fragments = nil
		}
	}

	prompt := BuildPrompt(req.Question, ContextFromFragments(fragments))

	temperature := defaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	answer := FormatResponse(c.gemini.Ask(ctx, state, prompt, temperature, req.Model))

	state.AppendTurn(models.RoleAssistant, answer)
	state.SetLastExchange(req.Question, answer)

	return &models.QueryResponse{
		Answer:    answer,
		Model:     state.ActiveModel(),
		SessionID: state.ID(),
		Sources:   fragments,
	}
}

// AnswerDirect answers a question with no retrieval step and no duplicate
// bookkeeping. Used for the FAQ cards.
func (c *ChatService) AnswerDirect(ctx context.Context, sessionID, question string) *models.QueryResponse {
	state := c.store.Get(sessionID)
	prompt := BuildPrompt(question, "")
	answer := FormatResponse(c.gemini.Ask(ctx, state, prompt, defaultTemperature, ""))
	return &models.QueryResponse{
		Answer:    answer,
		Model:     state.ActiveModel(),
		SessionID: state.ID(),
	}
}

// shortCircuit returns a recap of the previous answer when the incoming
// question matches the session's previous question after trimming and
// lowercasing. The last exchange is left untouched so a third repeat
// recaps the same original answer.
func (c *ChatService) shortCircuit(state *SessionState, question string) (string, bool) {
	prevQuestion, prevAnswer := state.LastExchange()
	if prevQuestion == "" {
		return "", false
	}
	if normalizeQuestion(question) != normalizeQuestion(prevQuestion) {
		return "", false
	}

	lines := strings.Split(prevAnswer, "\n")
	if len(lines) > recapLineCount {
		lines = lines[:recapLineCount]
	}
	return strings.Join(lines, "\n") + "\n\n" + recapSuffix, true
}

func normalizeQuestion(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
