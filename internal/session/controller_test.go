package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"peelojuice-staff/internal/event"
	"peelojuice-staff/internal/model"
	"peelojuice-staff/internal/sessionstore"
)

type fakeAuth struct {
	login    model.LoginResponse
	verify   model.VerifyOTPResponse
	err      error
	attempts int
}

func (f *fakeAuth) Login(context.Context, string, string) (model.LoginResponse, error) {
	f.attempts++
	return f.login, f.err
}

func (f *fakeAuth) VerifyOTP(context.Context, string, string) (model.VerifyOTPResponse, error) {
	f.attempts++
	return f.verify, f.err
}

// recordingStore wraps a memory store and can be told to fail writes.
type recordingStore struct {
	*sessionstore.MemoryStore
	mu       sync.Mutex
	writes   int
	failSet  bool
	failGet  bool
	removals int
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: sessionstore.NewMemoryStore()}
}

func (s *recordingStore) Get(ctx context.Context, keys []string) (map[string]string, error) {
	if s.failGet {
		return nil, errors.New("unreadable")
	}
	return s.MemoryStore.Get(ctx, keys)
}

func (s *recordingStore) SetAll(ctx context.Context, pairs map[string]string) error {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	if s.failSet {
		return errors.New("disk full")
	}
	return s.MemoryStore.SetAll(ctx, pairs)
}

func (s *recordingStore) RemoveAll(ctx context.Context, keys []string) error {
	s.mu.Lock()
	s.removals++
	s.mu.Unlock()
	return s.MemoryStore.RemoveAll(ctx, keys)
}

func downtownStaff() *model.StaffProfile {
	return &model.StaffProfile{
		ID:             7,
		FullName:       "Sam Rivera",
		Email:          "sam@example.com",
		IsStaff:        true,
		AssignedBranch: &model.BranchProfile{ID: 3, Name: "Downtown", City: "Metro"},
	}
}

func newReadyController(t *testing.T, store sessionstore.Store, auth Authenticator, opts ...Option) *Controller {
	t.Helper()
	c := NewController(store, auth, opts...)
	c.Initialize(context.Background())
	require.Equal(t, PhaseUnauthenticated, c.Snapshot().Phase)
	return c
}

func TestLoginStaffWithBranch(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	auth := &fakeAuth{login: model.LoginResponse{AccessToken: "A", RefreshToken: "R", User: downtownStaff()}}
	c := newReadyController(t, store, auth)

	require.NoError(t, c.Login(context.Background(), "sam@example.com", "pw"))

	state := c.Snapshot()
	require.Equal(t, PhaseAuthenticated, state.Phase)
	require.True(t, c.IsAuthenticated())
	require.Equal(t, "Downtown", state.Branch.Name)
	require.Equal(t, *downtownStaff().AssignedBranch, *state.Branch)

	values, err := store.Get(context.Background(), sessionstore.SessionKeys)
	require.NoError(t, err)
	require.Len(t, values, 4)
	require.Equal(t, "A", values[sessionstore.KeyAccessToken])
	require.Equal(t, "R", values[sessionstore.KeyRefreshToken])
}

func TestLoginRejectsNonStaffWithoutWriting(t *testing.T) {
	t.Parallel()

	customer := downtownStaff()
	customer.IsStaff = false

	store := newRecordingStore()
	c := newReadyController(t, store, &fakeAuth{login: model.LoginResponse{AccessToken: "A", User: customer}})

	err := c.Login(context.Background(), "sam", "pw")
	require.ErrorIs(t, err, model.ErrNotStaff)
	require.False(t, c.IsAuthenticated())
	require.Zero(t, store.writes)
}

func TestLoginRejectsStaffWithoutBranch(t *testing.T) {
	t.Parallel()

	staff := downtownStaff()
	staff.AssignedBranch = nil

	store := newRecordingStore()
	c := newReadyController(t, store, &fakeAuth{login: model.LoginResponse{AccessToken: "A", User: staff}})

	err := c.Login(context.Background(), "sam", "pw")
	require.ErrorIs(t, err, model.ErrNoBranch)
	require.Equal(t, PhaseUnauthenticated, c.Snapshot().Phase)
	require.Zero(t, store.writes)
}

func TestLoginMissingUserIsMalformed(t *testing.T) {
	t.Parallel()

	c := newReadyController(t, newRecordingStore(), &fakeAuth{login: model.LoginResponse{AccessToken: "A"}})
	require.ErrorIs(t, c.Login(context.Background(), "sam", "pw"), model.ErrMalformedResponse)
}

func TestLoginServerErrorPropagates(t *testing.T) {
	t.Parallel()

	c := newReadyController(t, newRecordingStore(), &fakeAuth{err: model.ErrNetwork})
	require.ErrorIs(t, c.Login(context.Background(), "sam", "pw"), model.ErrNetwork)
	require.False(t, c.IsAuthenticated())
}

func TestLoginStorageFailureKeepsMemory(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	store.failSet = true
	c := newReadyController(t, store, &fakeAuth{login: model.LoginResponse{AccessToken: "A", User: downtownStaff()}})

	err := c.Login(context.Background(), "sam", "pw")
	require.ErrorIs(t, err, model.ErrStorage)
	require.False(t, c.IsAuthenticated())
	require.Equal(t, 1, store.removals)
}

func TestLoginPhaseGates(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{login: model.LoginResponse{AccessToken: "A", User: downtownStaff()}}
	c := NewController(newRecordingStore(), auth)

	require.ErrorIs(t, c.Login(context.Background(), "sam", "pw"), model.ErrNotInitialized)

	c.Initialize(context.Background())
	require.NoError(t, c.Login(context.Background(), "sam", "pw"))
	require.ErrorIs(t, c.Login(context.Background(), "sam", "pw"), model.ErrAlreadyAuthenticated)
	require.Equal(t, 1, auth.attempts)
}

func TestCompleteVerificationAppliesSameRules(t *testing.T) {
	t.Parallel()

	customer := downtownStaff()
	customer.IsStaff = false
	auth := &fakeAuth{verify: model.VerifyOTPResponse{Access: "A", Refresh: "R", User: customer}}
	c := newReadyController(t, newRecordingStore(), auth)

	require.ErrorIs(t, c.CompleteVerification(context.Background(), "sam@example.com", "123456"), model.ErrNotStaff)

	auth.verify.User = downtownStaff()
	require.NoError(t, c.CompleteVerification(context.Background(), "sam@example.com", "123456"))
	require.Equal(t, "Downtown", c.Snapshot().Branch.Name)
}

func TestLogoutIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	c := newReadyController(t, store, &fakeAuth{login: model.LoginResponse{AccessToken: "A", RefreshToken: "R", User: downtownStaff()}})
	ctx := context.Background()

	require.NoError(t, c.Login(ctx, "sam", "pw"))
	c.Logout(ctx)
	c.Logout(ctx)

	require.Equal(t, PhaseUnauthenticated, c.Snapshot().Phase)
	values, err := store.Get(ctx, sessionstore.SessionKeys)
	require.NoError(t, err)
	require.Empty(t, values)
}

func TestRestartRestoresSession(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	ctx := context.Background()
	first := newReadyController(t, store, &fakeAuth{login: model.LoginResponse{AccessToken: "opaque", User: downtownStaff()}})
	require.NoError(t, first.Login(ctx, "sam", "pw"))

	second := NewController(store, &fakeAuth{})
	require.Equal(t, PhaseLoading, second.Snapshot().Phase)
	second.Initialize(ctx)

	state := second.Snapshot()
	require.Equal(t, PhaseAuthenticated, state.Phase)
	require.Equal(t, first.Snapshot().Staff, state.Staff)
	require.Equal(t, first.Snapshot().Branch, state.Branch)
}

func TestInitializeRequiresCompleteSession(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	require.NoError(t, store.SetAll(context.Background(), map[string]string{
		sessionstore.KeyAccessToken: "A",
		sessionstore.KeyStaff:       `{"id":7,"is_staff":true}`,
	}))

	c := NewController(store, &fakeAuth{})
	c.Initialize(context.Background())
	require.Equal(t, PhaseUnauthenticated, c.Snapshot().Phase)
}

func TestInitializeStoreFailure(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	store.failGet = true

	c := NewController(store, &fakeAuth{})
	c.Initialize(context.Background())
	require.Equal(t, PhaseUnauthenticated, c.Snapshot().Phase)
}

func TestInitializeDropsExpiredJWT(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	mint := func(exp time.Time) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		}).SignedString([]byte("test-secret"))
		require.NoError(t, err)
		return token
	}

	seed := func(token string) *recordingStore {
		store := newRecordingStore()
		pairs, err := sessionstore.Encode(model.Session{AccessToken: token, RefreshToken: "R", Staff: downtownStaff(), Branch: downtownStaff().AssignedBranch})
		require.NoError(t, err)
		require.NoError(t, store.SetAll(context.Background(), pairs))
		return store
	}

	expired := seed(mint(now.Add(-time.Minute)))
	c := NewController(expired, &fakeAuth{}, WithClock(func() time.Time { return now }))
	c.Initialize(context.Background())
	require.Equal(t, PhaseUnauthenticated, c.Snapshot().Phase)

	values, err := expired.Get(context.Background(), sessionstore.SessionKeys)
	require.NoError(t, err)
	require.Equal(t, map[string]string{sessionstore.KeyRefreshToken: "R"}, values)

	valid := seed(mint(now.Add(time.Hour)))
	c = NewController(valid, &fakeAuth{}, WithClock(func() time.Time { return now }))
	c.Initialize(context.Background())
	require.Equal(t, PhaseAuthenticated, c.Snapshot().Phase)
}

func TestUnauthorizedThenReload(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	bus := event.NewBus()
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	ctx := context.Background()
	c := newReadyController(t, store, &fakeAuth{login: model.LoginResponse{AccessToken: "A", RefreshToken: "R", User: downtownStaff()}}, WithBus(bus))
	require.NoError(t, c.Login(ctx, "sam", "pw"))
	require.Equal(t, event.TypeSessionStarted, (<-events).Type)

	// What the API client does on a 401.
	require.NoError(t, store.RemoveAll(ctx, sessionstore.ExpiredKeys))
	c.HandleUnauthorized(ctx)

	e := <-events
	require.Equal(t, event.TypeSessionExpired, e.Type)
	require.Equal(t, "7", e.ActorID)
	require.False(t, c.IsAuthenticated())

	c.HandleUnauthorized(ctx)
	c.Reload(ctx)
	require.Equal(t, PhaseUnauthenticated, c.Snapshot().Phase)
	require.Empty(t, events)
}

func TestReloadPicksUpExternalChanges(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	ctx := context.Background()
	c := newReadyController(t, store, &fakeAuth{})

	pairs, err := sessionstore.Encode(model.Session{AccessToken: "A", Staff: downtownStaff(), Branch: downtownStaff().AssignedBranch})
	require.NoError(t, err)
	require.NoError(t, store.SetAll(ctx, pairs))

	c.Reload(ctx)
	require.Equal(t, PhaseAuthenticated, c.Snapshot().Phase)

	require.NoError(t, store.RemoveAll(ctx, sessionstore.SessionKeys))
	c.Reload(ctx)
	require.Equal(t, PhaseUnauthenticated, c.Snapshot().Phase)
}

func TestPhaseString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "loading", PhaseLoading.String())
	require.Equal(t, "authenticated", PhaseAuthenticated.String())
	require.Equal(t, "phase(9)", Phase(9).String())
}
