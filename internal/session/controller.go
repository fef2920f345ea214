// Package session owns the signed-in staff member for the lifetime of the
// process.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"peelojuice-staff/internal/event"
	"peelojuice-staff/internal/model"
	"peelojuice-staff/internal/sessionstore"
)

type Phase int

const (
	PhaseLoading Phase = iota
	PhaseUnauthenticated
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "phase(" + strconv.Itoa(int(p)) + ")"
	}
}

// State is a read-only view of the controller.
type State struct {
	Phase  Phase
	Staff  *model.StaffProfile
	Branch *model.BranchProfile
}

// Authenticator is the part of the auth service that yields credentials.
type Authenticator interface {
	Login(ctx context.Context, emailOrPhone string, password string) (model.LoginResponse, error)
	VerifyOTP(ctx context.Context, email string, code string) (model.VerifyOTPResponse, error)
}

// Change is the payload of session lifecycle events.
type Change struct {
	Reason string `json:"reason"`
	Branch string `json:"branch,omitempty"`
}

type Controller struct {
	store  sessionstore.Store
	auth   Authenticator
	bus    event.Bus
	logger *slog.Logger
	now    func() time.Time

	initOnce sync.Once

	mu      sync.RWMutex
	phase   Phase
	session model.Session
}

type Option func(*Controller)

func WithBus(bus event.Bus) Option {
	return func(c *Controller) { c.bus = bus }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithClock overrides the clock used to check token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func NewController(store sessionstore.Store, auth Authenticator, opts ...Option) *Controller {
	c := &Controller{
		store:  store,
		auth:   auth,
		logger: slog.Default(),
		now:    time.Now,
		phase:  PhaseLoading,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize restores a persisted session. Only the first call does any work,
// and the controller always leaves the loading phase.
func (c *Controller) Initialize(ctx context.Context) {
	c.initOnce.Do(func() {
		c.load(ctx, "restored")
	})
}

// Reload re-reads the store and adopts or drops the session it finds.
func (c *Controller) Reload(ctx context.Context) {
	ran := false
	c.initOnce.Do(func() {
		ran = true
		c.load(ctx, "restored")
	})
	if !ran {
		c.load(ctx, "reloaded")
	}
}

func (c *Controller) load(ctx context.Context, reason string) {
	values, err := c.store.Get(ctx, sessionstore.SessionKeys)
	if err != nil {
		c.logger.Warn("session store unreadable", "error", err)
		c.drop("store unreadable")
		return
	}

	session, ok := sessionstore.Decode(values)
	if !ok {
		c.drop("no session")
		return
	}

	if c.tokenExpired(session.AccessToken) {
		if err := c.store.RemoveAll(ctx, sessionstore.ExpiredKeys); err != nil {
			c.logger.Warn("failed to clear expired session", "error", err)
		}
		c.drop("token expired")
		return
	}

	c.adopt(session, reason)
}

// Login authenticates against the server and persists the session when the
// account is staff with an assigned branch.
func (c *Controller) Login(ctx context.Context, emailOrPhone string, password string) error {
	if err := c.acceptingLogin(); err != nil {
		return err
	}

	resp, err := c.auth.Login(ctx, emailOrPhone, password)
	if err != nil {
		return err
	}

	return c.establish(ctx, resp.AccessToken, resp.RefreshToken, resp.User, "login")
}

// CompleteVerification verifies a registration OTP and signs the account in
// under the same rules as Login.
func (c *Controller) CompleteVerification(ctx context.Context, email string, code string) error {
	if err := c.acceptingLogin(); err != nil {
		return err
	}

	resp, err := c.auth.VerifyOTP(ctx, email, code)
	if err != nil {
		return err
	}

	return c.establish(ctx, resp.Access, resp.Refresh, resp.User, "otp verified")
}

// Logout clears the store on a best-effort basis and always clears memory.
func (c *Controller) Logout(ctx context.Context) {
	if err := c.store.RemoveAll(ctx, sessionstore.SessionKeys); err != nil {
		c.logger.Warn("failed to clear session store on logout", "error", err)
	}
	c.drop("logout")
}

// HandleUnauthorized is called by the API client after a 401 has cleared
// the stored credentials.
func (c *Controller) HandleUnauthorized(_ context.Context) {
	c.mu.Lock()
	if c.phase != PhaseAuthenticated {
		c.mu.Unlock()
		return
	}
	actor := actorID(c.session.Staff)
	c.phase = PhaseUnauthenticated
	c.session = model.Session{}
	c.mu.Unlock()

	c.logger.Info("session expired by server")
	c.publish(event.TypeSessionExpired, actor, Change{Reason: "unauthorized"})
}

func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return State{Phase: c.phase, Staff: c.session.Staff, Branch: c.session.Branch}
}

func (c *Controller) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.Staff != nil
}

func (c *Controller) acceptingLogin() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch c.phase {
	case PhaseLoading:
		return model.ErrNotInitialized
	case PhaseAuthenticated:
		return model.ErrAlreadyAuthenticated
	default:
		return nil
	}
}

func (c *Controller) establish(ctx context.Context, access string, refresh string, user *model.StaffProfile, reason string) error {
	if access == "" || user == nil {
		return fmt.Errorf("%w: credentials response missing token or user", model.ErrMalformedResponse)
	}
	if !user.IsStaff {
		return model.ErrNotStaff
	}
	if user.AssignedBranch == nil {
		return model.ErrNoBranch
	}

	session := model.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		Staff:        user,
		Branch:       user.AssignedBranch,
	}

	pairs, err := sessionstore.Encode(session)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	if err := c.store.SetAll(ctx, pairs); err != nil {
		if rbErr := c.store.RemoveAll(context.WithoutCancel(ctx), sessionstore.SessionKeys); rbErr != nil {
			c.logger.Warn("failed to roll back partial session write", "error", rbErr)
		}
		if !errors.Is(err, model.ErrStorage) {
			err = fmt.Errorf("%w: %v", model.ErrStorage, err)
		}
		return err
	}

	c.adopt(session, reason)
	return nil
}

func (c *Controller) adopt(session model.Session, reason string) {
	c.mu.Lock()
	c.phase = PhaseAuthenticated
	c.session = session
	c.mu.Unlock()

	c.logger.Info("staff signed in", "staff_id", session.Staff.ID, "branch", session.Branch.Name, "reason", reason)
	c.publish(event.TypeSessionStarted, actorID(session.Staff), Change{Reason: reason, Branch: session.Branch.Name})
}

func (c *Controller) drop(reason string) {
	c.mu.Lock()
	wasAuthenticated := c.phase == PhaseAuthenticated
	actor := actorID(c.session.Staff)
	c.phase = PhaseUnauthenticated
	c.session = model.Session{}
	c.mu.Unlock()

	if wasAuthenticated {
		c.publish(event.TypeSessionEnded, actor, Change{Reason: reason})
	}
}

// tokenExpired inspects the exp claim of JWT access tokens without verifying
// the signature. Opaque tokens are never considered expired.
func (c *Controller) tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(c.now())
}

func (c *Controller) publish(t event.Type, actor string, change Change) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(event.New(t, actor, change))
}

func actorID(staff *model.StaffProfile) string {
	if staff == nil {
		return ""
	}
	return strconv.FormatInt(staff.ID, 10)
}
