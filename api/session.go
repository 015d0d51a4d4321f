package api

import (
	"sort"
	"sync"
	"time"

	"github.com/crosstalkco/crosstalk/pkg/conversation"
)

// session is one active conversation and its driver state.
type session struct {
	// mu serializes turn execution. A turn reads the transcript before
	// its provider call and appends after it, so only one may run at a
	// time per conversation.
	mu sync.Mutex

	manager     *conversation.Manager
	maxTurns    int
	temperature float64
	createdAt   time.Time
}

// summary reports the session's driver state for list and get responses.
func (sess *session) summary() ConversationSummary {
	turns := sess.manager.Len()

	return ConversationSummary{
		ID:          sess.manager.ID(),
		Topic:       sess.manager.Topic(),
		Turns:       turns,
		MaxTurns:    sess.maxTurns,
		Temperature: sess.temperature,
		Done:        turns >= sess.maxTurns,
		CreatedAt:   sess.createdAt,
	}
}

// sessionStore holds active conversations keyed by conversation ID.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*session),
	}
}

func (st *sessionStore) add(sess *session) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.sessions[sess.manager.ID()] = sess
}

func (st *sessionStore) get(id string) (*session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	sess, ok := st.sessions[id]
	return sess, ok
}

func (st *sessionStore) remove(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.sessions, id)
}

// list returns all sessions, oldest first.
func (st *sessionStore) list() []*session {
	st.mu.RLock()
	defer st.mu.RUnlock()

	sessions := make([]*session, 0, len(st.sessions))
	for _, sess := range st.sessions {
		sessions = append(sessions, sess)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].createdAt.Before(sessions[j].createdAt)
	})

	return sessions
}
