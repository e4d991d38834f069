package api

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moneyrush/round-engine/internal/catalog"
)

// Roles returned by /api/state.
const (
	RolePublic = "public"
	RoleAgent  = "agent"
	RoleAdmin  = "admin"
)

type session struct {
	role    string
	agent   catalog.Agent
	expires time.Time
}

// Sessions is an in-memory bearer token table. Tokens do not survive a
// restart; clients log in again.
type Sessions struct {
	mu     sync.Mutex
	tokens map[string]session
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions creates a token table whose entries expire after ttl.
func NewSessions(ttl time.Duration, now func() time.Time) *Sessions {
	if now == nil {
		now = time.Now
	}
	return &Sessions{tokens: make(map[string]session), ttl: ttl, now: now}
}

// IssueAdmin returns a new admin token.
func (s *Sessions) IssueAdmin() string {
	return s.issue("adm", session{role: RoleAdmin})
}

// IssueAgent returns a new token bound to agent.
func (s *Sessions) IssueAgent(agent catalog.Agent) string {
	return s.issue("agt", session{role: RoleAgent, agent: agent})
}

func (s *Sessions) issue(prefix string, sess session) string {
	token := prefix + "_" + uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.prune(now)
	sess.expires = now.Add(s.ttl)
	s.tokens[token] = sess
	return token
}

// Lookup resolves a token. Unknown and expired tokens report RolePublic.
func (s *Sessions) Lookup(token string) (string, catalog.Agent) {
	if token == "" {
		return RolePublic, catalog.Agent{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.tokens[token]
	if !ok {
		return RolePublic, catalog.Agent{}
	}
	if !s.now().Before(sess.expires) {
		delete(s.tokens, token)
		return RolePublic, catalog.Agent{}
	}
	return sess.role, sess.agent
}

// Len reports the number of live tokens.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(s.now())
	return len(s.tokens)
}

func (s *Sessions) prune(now time.Time) {
	for token, sess := range s.tokens {
		if !now.Before(sess.expires) {
			delete(s.tokens, token)
		}
	}
}
