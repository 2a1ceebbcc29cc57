package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"example.com/liftsync/internal/domain"
)

// AuthEvent is the kind of auth state transition delivered to subscribers.
type AuthEvent string

const (
	AuthSignedIn       AuthEvent = "SIGNED_IN"
	AuthSignedOut      AuthEvent = "SIGNED_OUT"
	AuthTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthHandler receives auth state transitions. Events are delivered in
// emission order; a handler is never invoked concurrently with itself.
type AuthHandler func(event AuthEvent, user *domain.AuthUser)

type subscriber struct {
	id int
	fn AuthHandler
}

type authState struct {
	mu          sync.Mutex
	token       string
	subscribers []subscriber
	nextID      int

	// dispatchMu serializes event delivery so subscribers observe
	// transitions in emission order.
	dispatchMu sync.Mutex
}

func (a *authState) currentToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token
}

// SetSession installs an access token, emitting SIGNED_IN on first install
// and TOKEN_REFRESHED when replacing an existing one.
func (c *Client) SetSession(token string) {
	c.auth.mu.Lock()
	previous := c.auth.token
	c.auth.token = token
	c.auth.mu.Unlock()

	event := AuthSignedIn
	if previous != "" {
		event = AuthTokenRefreshed
	}
	user, err := c.AuthSession(context.Background())
	if err != nil {
		c.logger.Printf("auth session decode failed: %v", err)
	}
	c.emit(event, user)
}

// ClearSession drops the access token and emits SIGNED_OUT.
func (c *Client) ClearSession() {
	c.auth.mu.Lock()
	had := c.auth.token != ""
	c.auth.token = ""
	c.auth.mu.Unlock()

	if had {
		c.emit(AuthSignedOut, nil)
	}
}

// AuthSession returns the current user, or nil when signed out or the token
// has expired. The token was issued and signed by the backend; the client
// decodes its claims without re-verifying the signature, which only the
// backend can do.
func (c *Client) AuthSession(_ context.Context) (*domain.AuthUser, error) {
	token := c.auth.currentToken()
	if token == "" {
		return nil, nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(time.Now()) {
		return nil, nil
	}

	user := &domain.AuthUser{}
	if sub, err := claims.GetSubject(); err == nil {
		user.ID = sub
	}
	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}
	if meta, ok := claims["user_metadata"].(map[string]any); ok {
		user.Metadata = meta
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		user.CreatedAt = iat.Time.UTC()
	}
	return user, nil
}

// OnAuthStateChange registers a handler. The returned func unsubscribes it;
// callers tie it to their own lifetime.
func (c *Client) OnAuthStateChange(fn AuthHandler) (unsubscribe func()) {
	c.auth.mu.Lock()
	id := c.auth.nextID
	c.auth.nextID++
	c.auth.subscribers = append(c.auth.subscribers, subscriber{id: id, fn: fn})
	c.auth.mu.Unlock()

	return func() {
		c.auth.mu.Lock()
		defer c.auth.mu.Unlock()
		for i, sub := range c.auth.subscribers {
			if sub.id == id {
				c.auth.subscribers = append(c.auth.subscribers[:i], c.auth.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (c *Client) emit(event AuthEvent, user *domain.AuthUser) {
	c.auth.dispatchMu.Lock()
	defer c.auth.dispatchMu.Unlock()

	c.auth.mu.Lock()
	subs := make([]subscriber, len(c.auth.subscribers))
	copy(subs, c.auth.subscribers)
	c.auth.mu.Unlock()

	for _, sub := range subs {
		sub.fn(event, user)
	}
}
