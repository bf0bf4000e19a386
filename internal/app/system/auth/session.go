package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const userIDKey = "user_id"

// UserFetcher loads the current state of a user. It returns (nil, nil) when the
// user no longer exists or is disabled, which signs the caller out.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) (*SessionUser, error)
}

// SessionManager resolves the caller from a bearer token or the session cookie.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	tokens  *TokenIssuer
	fetcher UserFetcher
	log     *zap.Logger
}

// NewSessionManager builds the cookie store and ties it to tokens.
//
// An empty session key is only tolerated outside production; a random key is
// generated so local runs work, at the cost of sessions not surviving restarts.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, tokens *TokenIssuer, logger *zap.Logger) (*SessionManager, error) {
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	key := []byte(sessionKey)
	switch {
	case len(key) == 0 && secure:
		return nil, errors.New("session key is empty; provide at least 32 random characters")
	case len(key) == 0:
		key = securecookie.GenerateRandomKey(32)
		logger.Warn("session key not set; generated an ephemeral key")
	case len(key) < 32:
		logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(key)))
	}

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}

	return &SessionManager{store: store, name: name, tokens: tokens, log: logger}, nil
}

// SetUserFetcher makes LoadUser re-read the user on each request so role
// changes and disabled accounts take effect immediately.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) { sm.fetcher = f }

// Tokens returns the issuer used for bearer tokens.
func (sm *SessionManager) Tokens() *TokenIssuer { return sm.tokens }

// LoadUser puts the caller into the request context when credentials are
// present and valid. Requests without credentials pass through anonymous;
// guards decide whether that is acceptable.
func (sm *SessionManager) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := sm.resolve(r)
		if u != nil {
			r = r.WithContext(WithUser(r.Context(), u))
		}
		next.ServeHTTP(w, r)
	})
}

func (sm *SessionManager) resolve(r *http.Request) *SessionUser {
	if tok := bearerToken(r); tok != "" {
		u, err := sm.tokens.Parse(tok)
		if err != nil {
			sm.log.Debug("bearer token rejected", zap.Error(err))
			return nil
		}
		return sm.refresh(r.Context(), u)
	}

	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			sm.log.Debug("session cookie invalid", zap.Error(err))
		}
		return nil
	}
	id, _ := sess.Values[userIDKey].(string)
	if id == "" {
		return nil
	}
	return sm.refresh(r.Context(), &SessionUser{
		ID:    id,
		Name:  stringValue(sess, "name"),
		Email: stringValue(sess, "email"),
		Role:  stringValue(sess, "role"),
		Plan:  stringValue(sess, "plan"),
	})
}

func (sm *SessionManager) refresh(ctx context.Context, u *SessionUser) *SessionUser {
	if sm.fetcher == nil {
		return u
	}
	fresh, err := sm.fetcher.FetchUser(ctx, u.ID)
	if err != nil {
		// Keep the credential's view of the user rather than failing the request.
		sm.log.Warn("user refresh failed", zap.String("user_id", u.ID), zap.Error(err))
		return u
	}
	return fresh
}

// SignIn writes the session cookie for u.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, u *SessionUser) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values[userIDKey] = u.ID
	sess.Values["name"] = u.Name
	sess.Values["email"] = u.Email
	sess.Values["role"] = u.Role
	sess.Values["plan"] = u.Plan
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// SignOut expires the session cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

func stringValue(s *sessions.Session, key string) string {
	v, _ := s.Values[key].(string)
	return v
}
