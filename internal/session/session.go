// Package session holds per-user conversational state: which model a user is
// bound to and the ordered turns exchanged so far.
//
// State is in-memory only and lost on restart. Sessions are created lazily,
// replaced wholesale on model switch or reset, and never partially mutated.
// Concurrent turns for the same user are last-write-wins; the store only
// guards its map for memory safety, not for turn-level consistency.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role constants for conversation turns.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ErrUnknownModel indicates a model switch was rejected by the validator.
// The underlying cause is wrapped and available via errors.Unwrap.
var ErrUnknownModel = errors.New("unknown model")

// Turn is one message in a conversation. Image bytes are kept alongside the
// text so a follow-up question about an earlier photo still has it in
// context.
type Turn struct {
	Role      string
	Text      string
	ImageMIME string
	ImageData []byte
}

// Session is one user's conversational context, bound to a single model.
// The turn sequence is append-only: callers append a user/model turn pair
// only after a successful model response, so failed turns never contaminate
// the stored context.
type Session struct {
	// ID identifies one conversation incarnation; a switch or reset mints a
	// new one, which keeps log correlation unambiguous across swaps.
	ID uuid.UUID

	UserID    int64
	ModelName string
	CreatedAt time.Time

	mu    sync.Mutex
	turns []Turn
}

func newSession(userID int64, model string) *Session {
	return &Session{
		ID:        uuid.New(),
		UserID:    userID,
		ModelName: model,
		CreatedAt: time.Now(),
	}
}

// History returns a copy of the turns exchanged so far.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Append records a completed exchange. Only called after the model replied
// successfully.
func (s *Session) Append(userTurn, modelTurn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, userTurn, modelTurn)
}

// Len returns the number of stored turns.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// ModelValidator performs constructor-level validation of a model id. It
// must not require a network round trip; acceptance does not guarantee the
// remote call will succeed later.
type ModelValidator interface {
	ValidateModel(modelID string) error
}

// Store maps user ids to their sessions. Safe for concurrent use; semantics
// for racing turns of the same user are last-write-wins by design.
type Store struct {
	validator ModelValidator

	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewStore creates a session store. validator is consulted by SwitchModel
// only; it may be nil, in which case any model id is accepted.
func NewStore(validator ModelValidator) *Store {
	return &Store{
		validator: validator,
		sessions:  make(map[int64]*Session),
	}
}

// GetOrCreate returns the user's session, creating an empty one bound to
// defaultModel on first contact. An existing session is returned unchanged.
func (st *Store) GetOrCreate(userID int64, defaultModel string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[userID]; ok {
		return s
	}
	s := newSession(userID, defaultModel)
	st.sessions[userID] = s
	return s
}

// SwitchModel validates modelID and, on success, replaces the user's session
// with a fresh empty one bound to the new model. Discarding prior context on
// switch is intentional. On validation failure the existing session (if any)
// is left untouched and the error carries the underlying cause.
func (st *Store) SwitchModel(userID int64, modelID string) (*Session, error) {
	if st.validator != nil {
		if err := st.validator.ValidateModel(modelID); err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrUnknownModel, modelID, err)
		}
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	s := newSession(userID, modelID)
	st.sessions[userID] = s
	return s, nil
}

// Reset replaces the user's conversation with a fresh empty one under the
// same model. Resetting an unknown user creates a session bound to
// defaultModel.
func (st *Store) Reset(userID int64, defaultModel string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	model := defaultModel
	if prev, ok := st.sessions[userID]; ok {
		model = prev.ModelName
	}
	s := newSession(userID, model)
	st.sessions[userID] = s
	return s
}

// ModelName reports the model the user is currently bound to, or
// defaultModel if the user has no session yet. Never creates a session.
func (st *Store) ModelName(userID int64, defaultModel string) string {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[userID]; ok {
		return s.ModelName
	}
	return defaultModel
}
