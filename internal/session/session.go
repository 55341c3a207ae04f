// Package session keeps the in-memory conversion sessions.
//
// Each session owns one pipeline and is addressed by a signed HS256 token
// carrying its ID. Nothing is persisted: a restart drops every session, and a
// janitor removes sessions left idle for longer than the TTL.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/i18n"
	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/pipeline"
)

// DefaultTTL is how long an idle session survives.
const DefaultTTL = 2 * time.Hour

// tokenLifetime caps a session's age regardless of activity.
const tokenLifetime = 24 * time.Hour

const tokenIssuer = "pdf-reformatter"

var (
	// ErrNotFound means the token is valid but its session is gone.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidToken means the token failed verification.
	ErrInvalidToken = errors.New("invalid or expired session token")
)

// Session is one user's conversion workspace.
type Session struct {
	ID        string
	Pipeline  *pipeline.Pipeline
	Messages  i18n.Catalog
	CreatedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastActive is the time of the last authenticated request.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Claims are the JWT claims of a session token. The session ID is the subject.
type Claims struct {
	Locale string `json:"locale"`
	jwt.RegisteredClaims
}

// Options configures a Registry.
type Options struct {
	TTL           time.Duration
	Secret        string
	DefaultLocale string
}

// Registry creates, finds and expires sessions.
type Registry struct {
	deps          pipeline.Deps
	ttl           time.Duration
	secret        []byte
	defaultLocale string
	logger        *zap.Logger
	now           func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session

	stopOnce sync.Once
	stop     chan struct{}
}

// NewRegistry creates a registry whose pipelines share deps.
func NewRegistry(deps pipeline.Deps, opts Options, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &Registry{
		deps:          deps,
		ttl:           opts.TTL,
		secret:        []byte(opts.Secret),
		defaultLocale: opts.DefaultLocale,
		logger:        logger,
		now:           time.Now,
		sessions:      make(map[string]*Session),
		stop:          make(chan struct{}),
	}
}

// Create starts a new session. The locale is negotiated from
// acceptLanguage, falling back to the configured default.
func (r *Registry) Create(acceptLanguage string) (*Session, string, time.Time, error) {
	messages := i18n.MatchOr(acceptLanguage, r.defaultLocale)

	now := r.now()
	id := uuid.New().String()
	s := &Session{
		ID:        id,
		Pipeline:  pipeline.New(id, r.deps, messages),
		Messages:  messages,
		CreatedAt: now,
		lastSeen:  now,
	}

	token, expiresAt, err := r.IssueToken(s)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	r.logger.Info("🆕 Session created", zap.String("session_id", id), zap.String("locale", messages.Lang()))
	return s, token, expiresAt, nil
}

// Get returns a session by ID.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Delete removes a session.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// IssueToken signs a token for s.
func (r *Registry) IssueToken(s *Session) (string, time.Time, error) {
	expiresAt := s.CreatedAt.Add(tokenLifetime)
	claims := Claims{
		Locale: s.Messages.Lang(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   s.ID,
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, expiresAt, nil
}

// ParseToken validates a token and returns its claims.
func (r *Registry) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return r.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate resolves a token to its live session and marks it active.
func (r *Registry) Authenticate(tokenString string) (*Session, error) {
	claims, err := r.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}

	s, ok := r.Get(claims.Subject)
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(r.now())
	return s, nil
}

// Sweep removes sessions idle for longer than the TTL. Sessions with a step
// in flight are kept.
func (r *Registry) Sweep() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.Pipeline.Status().Busy() {
			continue
		}
		if now.Sub(s.LastActive()) > r.ttl {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps expired sessions every interval until Stop.
func (r *Registry) StartJanitor(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := r.Sweep(); n > 0 {
					r.logger.Info("🧹 Expired sessions removed", zap.Int("count", n), zap.Int("remaining", r.Len()))
				}
			case <-r.stop:
				return
			}
		}
	}()
}

// Stop ends the janitor. Safe to call more than once.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}
