package user

import (
	"sync"
	"time"
)

// AuthState is the sign-in state shown to the browser.
type AuthState struct {
	IsSignedIn bool    `json:"isSignedIn"`
	UserName   *string `json:"userName"`
	UserID     *string `json:"userId"`
}

// AuthContext tracks the sign-in state of one browser session. It is written
// by the session's socket reader and read by upload timers, so every accessor
// locks.
type AuthContext struct {
	mu        sync.RWMutex
	service   *UserService
	token     string
	user      *User
	expiresAt time.Time
}

func NewAuthContext(service *UserService) *AuthContext {
	return &AuthContext{service: service}
}

// SignIn validates token and, on success, replaces the current identity.
// A rejected token leaves the previous state untouched.
func (c *AuthContext) SignIn(token string) error {
	claims, err := c.service.parseJWT(token)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
	c.user = &User{ID: claims.UserID, Username: claims.Username}
	c.expiresAt = time.Time{}
	if claims.ExpiresAt != nil {
		c.expiresAt = claims.ExpiresAt.Time
	}
	return nil
}

func (c *AuthContext) SignOut() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = ""
	c.user = nil
	c.expiresAt = time.Time{}
}

// Refresh re-validates the stored token. A token that no longer validates
// signs the session out and the validation error is returned.
func (c *AuthContext) Refresh() error {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token == "" {
		return nil
	}
	if err := c.SignIn(token); err != nil {
		c.SignOut()
		return err
	}
	return nil
}

func (c *AuthContext) IsSignedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.signedInLocked()
}

// IsAuthorized reports whether the session may upload files.
func (c *AuthContext) IsAuthorized() bool {
	return c.IsSignedIn()
}

// User returns a copy of the signed-in user, or nil.
func (c *AuthContext) User() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.signedInLocked() {
		return nil
	}
	u := *c.user
	return &u
}

func (c *AuthContext) State() AuthState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.signedInLocked() {
		return AuthState{}
	}
	name, id := c.user.Username, c.user.ID
	return AuthState{IsSignedIn: true, UserName: &name, UserID: &id}
}

func (c *AuthContext) signedInLocked() bool {
	if c.user == nil {
		return false
	}
	if !c.expiresAt.IsZero() && !c.service.timeNow().Before(c.expiresAt) {
		return false
	}
	return true
}
