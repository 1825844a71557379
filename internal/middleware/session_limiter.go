package middleware

import (
	"log"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"
)

// SessionLimiter caps the automatic builds running at once for one session.
// Saving a build rewrites the whole session document, so parallel builds on
// the same session would overwrite each other.
type SessionLimiter struct {
	maxPerSession int
	mu            sync.Mutex
	inFlight      map[string]int
}

// NewSessionLimiter creates a limiter allowing maxPerSession concurrent
// requests per session id.
func NewSessionLimiter(maxPerSession int) *SessionLimiter {
	if maxPerSession <= 0 {
		maxPerSession = 1
	}
	return &SessionLimiter{maxPerSession: maxPerSession, inFlight: make(map[string]int)}
}

// Handle reads sessionId from the JSON body. Requests without one pass
// through and are rejected by the handler's validation.
func (l *SessionLimiter) Handle(c *fiber.Ctx) error {
	sessionID := strings.TrimSpace(gjson.GetBytes(c.Body(), "sessionId").String())
	if sessionID == "" {
		return c.Next()
	}

	if !l.acquire(sessionID) {
		log.Printf("⚠️  [LIMITER] Session %s already has an automatic build in progress", sessionID)
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "An automatic build is already running for this session",
		})
	}
	defer l.release(sessionID)

	return c.Next()
}

// Active returns the number of in-flight requests for a session.
func (l *SessionLimiter) Active(sessionID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight[sessionID]
}

func (l *SessionLimiter) acquire(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inFlight[sessionID] >= l.maxPerSession {
		return false
	}
	l.inFlight[sessionID]++
	return true
}

func (l *SessionLimiter) release(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inFlight[sessionID] <= 1 {
		delete(l.inFlight, sessionID)
		return
	}
	l.inFlight[sessionID]--
}
