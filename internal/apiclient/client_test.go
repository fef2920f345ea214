package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"peelojuice-staff/internal/apierror"
	"peelojuice-staff/internal/model"
	"peelojuice-staff/internal/sessionstore"
)

type observerFunc func(ctx context.Context)

func (f observerFunc) HandleUnauthorized(ctx context.Context) { f(ctx) }

type failingStore struct{}

func (failingStore) Get(context.Context, []string) (map[string]string, error) {
	return nil, errors.New("disk gone")
}
func (failingStore) SetAll(context.Context, map[string]string) error { return errors.New("disk gone") }
func (failingStore) RemoveAll(context.Context, []string) error       { return errors.New("disk gone") }

func newTestClient(t *testing.T, handler http.Handler, store sessionstore.Store, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(srv.URL, store, append([]Option{WithoutTracing()}, opts...)...)
	require.NoError(t, err)
	return client
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	t.Parallel()

	_, err := New("not a url", sessionstore.NewMemoryStore())
	require.Error(t, err)

	_, err = New("https://api.example.com", nil)
	require.Error(t, err)
}

func TestBearerHeaderFollowsStore(t *testing.T) {
	t.Parallel()

	var seen atomic.Value
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("Authorization"))
		require.NotEmpty(t, r.Header.Get(requestIDHeader))
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	})

	store := sessionstore.NewMemoryStore()
	client := newTestClient(t, handler, store)
	ctx := context.Background()

	var out model.MessageResponse
	require.NoError(t, client.Get(ctx, "/ping/", &out))
	require.Equal(t, "", seen.Load())
	require.Equal(t, "ok", out.Message)

	require.NoError(t, store.SetAll(ctx, map[string]string{sessionstore.KeyAccessToken: "abc"}))
	require.NoError(t, client.Get(ctx, "/ping/", &out))
	require.Equal(t, "Bearer abc", seen.Load())

	require.NoError(t, store.RemoveAll(ctx, sessionstore.SessionKeys))
	require.NoError(t, client.Get(ctx, "/ping/", &out))
	require.Equal(t, "", seen.Load())
}

func TestStoreFailureSendsWithoutToken(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, handler, failingStore{})
	require.NoError(t, client.Post(context.Background(), "/x/", map[string]string{"a": "b"}, nil))
}

func TestPostSendsJSONBody(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req model.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "a@b.c", req.EmailOrPhone)
		_, _ = w.Write([]byte(`{"access_token":"t","refresh_token":"r","user":{"id":1,"is_staff":true}}`))
	})

	client := newTestClient(t, handler, sessionstore.NewMemoryStore())

	var out model.LoginResponse
	err := client.Post(context.Background(), "/api/users/login/", model.LoginRequest{EmailOrPhone: "a@b.c", Password: "pw"}, &out)
	require.NoError(t, err)
	require.Equal(t, "t", out.AccessToken)
	require.True(t, out.User.IsStaff)
}

func TestUnauthorizedClearsStoreAndNotifies(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Token expired"}`))
	})

	ctx := context.Background()
	store := sessionstore.NewMemoryStore()
	require.NoError(t, store.SetAll(ctx, map[string]string{
		sessionstore.KeyAccessToken:  "abc",
		sessionstore.KeyRefreshToken: "ref",
		sessionstore.KeyStaff:        `{"id":1}`,
		sessionstore.KeyBranch:       `{"id":2}`,
	}))

	client := newTestClient(t, handler, store)

	var calls int
	var tokenAtNotify string
	client.Observe(observerFunc(func(ctx context.Context) {
		calls++
		values, err := store.Get(ctx, []string{sessionstore.KeyAccessToken})
		require.NoError(t, err)
		tokenAtNotify = values[sessionstore.KeyAccessToken]
	}))

	err := client.Get(ctx, "/api/orders/staff-orders/", nil)
	require.ErrorIs(t, err, model.ErrAuthExpired)

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Token expired", apiErr.Message)

	require.Equal(t, 1, calls)
	require.Empty(t, tokenAtNotify)

	values, err := store.Get(ctx, sessionstore.SessionKeys)
	require.NoError(t, err)
	require.Equal(t, map[string]string{sessionstore.KeyRefreshToken: "ref"}, values)
}

func TestServerErrorsAreClassified(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, model.ErrServerValidation},
		{http.StatusNotFound, model.ErrNotFound},
		{http.StatusInternalServerError, model.ErrServer},
	}

	for _, tc := range cases {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"message":"nope"}`))
		})
		client := newTestClient(t, handler, sessionstore.NewMemoryStore())

		err := client.Get(context.Background(), "/x/", nil)
		require.ErrorIs(t, err, tc.want, "status %d", tc.status)
		require.NotErrorIs(t, err, model.ErrNetwork)
	}
}

func TestTimeoutIsDistinctFromNetworkFailure(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	client := newTestClient(t, handler, sessionstore.NewMemoryStore(), WithTimeout(50*time.Millisecond))

	err := client.Get(context.Background(), "/slow/", nil)
	require.ErrorIs(t, err, model.ErrTimeout)
	require.NotErrorIs(t, err, model.ErrNetwork)
}

func TestConnectionFailureIsNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := New(url, sessionstore.NewMemoryStore(), WithoutTracing())
	require.NoError(t, err)

	err = client.Get(context.Background(), "/x/", nil)
	require.ErrorIs(t, err, model.ErrNetwork)
	require.NotErrorIs(t, err, model.ErrTimeout)
}

func TestMalformedBody(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/empty/":
			w.WriteHeader(http.StatusOK)
		case "/status/":
			_, _ = w.Write([]byte(`{"status":"lost"}`))
		default:
			_, _ = w.Write([]byte(`<html>`))
		}
	})
	client := newTestClient(t, handler, sessionstore.NewMemoryStore())
	ctx := context.Background()

	var out model.Order
	require.ErrorIs(t, client.Get(ctx, "/html/", &out), model.ErrMalformedResponse)
	require.ErrorIs(t, client.Get(ctx, "/empty/", &out), model.ErrMalformedResponse)
	require.ErrorIs(t, client.Get(ctx, "/status/", &out), model.ErrMalformedResponse)
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.NotFoundHandler(), sessionstore.NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Get(ctx, "/x/", nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMetricsAreRecorded(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	client := newTestClient(t, handler, sessionstore.NewMemoryStore(), WithRegistry(reg))

	require.NoError(t, client.Get(context.Background(), "/x/", nil))
	require.NoError(t, client.Get(context.Background(), "/x/", nil))

	families, err := reg.Gather()
	require.NoError(t, err)

	var total float64
	for _, family := range families {
		if family.GetName() != "staff_api_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	require.Equal(t, float64(2), total)

	_, err = NewMetrics(reg)
	require.NoError(t, err)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestCustomTransportWithoutResponseRequest(t *testing.T) {
	t.Parallel()

	var requestID string
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		requestID = r.Header.Get(requestIDHeader)
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader(`{"message":"cached"}`)),
		}, nil
	})

	client, err := New("https://api.example.com", sessionstore.NewMemoryStore(), WithTransport(rt), WithoutTracing())
	require.NoError(t, err)

	var out model.MessageResponse
	require.NoError(t, client.Get(context.Background(), "/x/", &out))
	require.Equal(t, "cached", out.Message)
	require.Len(t, requestID, 26)
}

func TestMetricsSharedAcrossClients(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	first := newTestClient(t, handler, sessionstore.NewMemoryStore(), WithRegistry(reg))
	second := newTestClient(t, handler, sessionstore.NewMemoryStore(), WithRegistry(reg))

	require.NoError(t, first.Get(context.Background(), "/x/", nil))
	require.NoError(t, second.Get(context.Background(), "/x/", nil))

	families, err := reg.Gather()
	require.NoError(t, err)

	var total float64
	for _, family := range families {
		if family.GetName() != "staff_api_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	require.Equal(t, float64(2), total)
}
