package services

import (
	"sync"
	"time"

	"github.com/Mallik-vinukonda/Legal-RAG-chatBot/models"

	"github.com/google/uuid"
)

// SessionState holds everything mutable about one chat session: the
// transcript, the active model, the last question/answer pair used by the
// duplicate shortcut, the rate-limiter stamp, and the document flags.
// All mutation goes through methods so nothing above this layer touches
// shared state directly.
type SessionState struct {
	mu sync.Mutex

	id          string
	history     []models.ConversationTurn
	activeModel string

	lastQuestion  string
	lastAnswer    string
	lastRequestAt time.Time

	documentsIndexed bool
	processing       bool
}

// ID returns the session identifier.
func (s *SessionState) ID() string {
	return s.id
}

// ActiveModel returns the model identifier currently pinned to the session.
func (s *SessionState) ActiveModel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeModel
}

// SwitchModel pins a new model to the session. Returns false if the session
// is already on that model. Once switched to the fallback, nothing in the
// request path ever switches back.
func (s *SessionState) SwitchModel(model string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeModel == model {
		return false
	}
	s.activeModel = model
	return true
}

// AppendTurn adds a message to the session transcript.
func (s *SessionState) AppendTurn(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, models.ConversationTurn{Role: role, Content: content})
}

// History returns a copy of the session transcript.
func (s *SessionState) History() []models.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := make([]models.ConversationTurn, len(s.history))
	copy(turns, s.history)
	return turns
}

// LastExchange returns the most recent question/answer pair.
func (s *SessionState) LastExchange() (question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuestion, s.lastAnswer
}

// SetLastExchange overwrites the question/answer pair kept for the
// duplicate shortcut. Called only after a fresh (non-duplicate) answer.
func (s *SessionState) SetLastExchange(question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuestion = question
	s.lastAnswer = answer
}

// ReserveRequestSlot computes how long the caller must wait to honor the
// minimum interval between outbound model calls, and advances the
// last-request stamp unconditionally so the limiter applies uniformly,
// failures included.
func (s *SessionState) ReserveRequestSlot(now time.Time, minInterval time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	wait := minInterval - now.Sub(s.lastRequestAt)
	if wait < 0 {
		wait = 0
	}
	s.lastRequestAt = now.Add(wait)
	return wait
}

// MarkDocumentsIndexed records whether the session has a usable index.
func (s *SessionState) MarkDocumentsIndexed(indexed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documentsIndexed = indexed
}

// DocumentsIndexed reports whether retrieval should run for this session.
func (s *SessionState) DocumentsIndexed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documentsIndexed
}

// BeginProcessing flips the processing flag on. Returns false if document
// processing is already in flight, which is the only concurrency guard the
// ingestion path needs.
func (s *SessionState) BeginProcessing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processing {
		return false
	}
	s.processing = true
	return true
}

// EndProcessing flips the processing flag off.
func (s *SessionState) EndProcessing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = false
}

// SessionStore owns all live sessions, keyed by ID.
type SessionStore struct {
	mu           sync.Mutex
	sessions     map[string]*SessionState
	defaultModel string
}

// NewSessionStore creates an empty store. New sessions start on defaultModel.
func NewSessionStore(defaultModel string) *SessionStore {
	return &SessionStore{
		sessions:     make(map[string]*SessionState),
		defaultModel: defaultModel,
	}
}

// Get returns the session for the given ID, creating it if the ID is empty
// or unknown (e.g. the server restarted and the client kept its old ID).
func (st *SessionStore) Get(sessionID string) *SessionState {
	st.mu.Lock()
	defer st.mu.Unlock()

	if sessionID != "" {
		if s, ok := st.sessions[sessionID]; ok {
			return s
		}
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	s := &SessionState{
		id:          sessionID,
		activeModel: st.defaultModel,
	}
	st.sessions[sessionID] = s
	return s
}
