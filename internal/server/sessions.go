// =============================================================================
// Ticket Sheets - Session Store
// =============================================================================
//
// Each browser session keeps its own uploaded dataset server-side, keyed by a
// UUID carried in an HMAC-signed cookie. The cookie never holds data, only
// the identifier; tampering with it just yields a fresh empty session.
//
// =============================================================================

package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eldermoor-railway/ticket-sheets/internal/table"
)

const sessionCookie = "ticket_session"

// session holds one browser's uploaded data.
type session struct {
	dataset  *table.Dataset
	csvName  string
	uploaded string // display timestamp, "02-Jan 15:04"
}

// sessionStore maps signed cookie IDs to sessions.
type sessionStore struct {
	mu     sync.Mutex
	secret []byte
	byID   map[string]*session
}

func newSessionStore(secret string) *sessionStore {
	return &sessionStore{
		secret: []byte(secret),
		byID:   make(map[string]*session),
	}
}

// get returns the request's session, or nil when there is none.
func (s *sessionStore) get(c *gin.Context) *session {
	id, ok := s.requestID(c)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id]
}

// put stores the session, minting and setting a new cookie when the request
// does not already carry a valid one.
func (s *sessionStore) put(c *gin.Context, sess *session) {
	id, ok := s.requestID(c)
	if !ok {
		id = uuid.NewString()
		c.SetCookie(sessionCookie, s.sign(id), 0, "/", "", false, true)
	}
	s.mu.Lock()
	s.byID[id] = sess
	s.mu.Unlock()
}

// requestID extracts and verifies the session ID from the request cookie.
func (s *sessionStore) requestID(c *gin.Context) (string, bool) {
	raw, err := c.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	id, sig, ok := strings.Cut(raw, ".")
	if !ok || !hmac.Equal([]byte(sig), []byte(s.signature(id))) {
		return "", false
	}
	return id, true
}

func (s *sessionStore) sign(id string) string {
	return id + "." + s.signature(id)
}

func (s *sessionStore) signature(id string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}
