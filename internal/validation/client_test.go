package validation

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usergate/usergate/internal/metrics"
	"github.com/usergate/usergate/internal/middleware"
)

// stubAPI serves a fixed status and body on /validate and records the last query.
type stubAPI struct {
	status    int
	body      string
	delay     time.Duration
	lastEmail atomic.Value
	lastReqID atomic.Value
	calls     atomic.Int32
}

func (s *stubAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.calls.Add(1)
	if r.URL.Path != ValidatePath || r.Method != http.MethodGet {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	s.lastEmail.Store(r.URL.Query().Get("email"))
	s.lastReqID.Store(r.Header.Get(middleware.RequestIDHeader))

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(s.status)
	_, _ = w.Write([]byte(s.body))
}

func newStubServer(t *testing.T, api *stubAPI) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return srv
}

func TestValidate_ValidEmail(t *testing.T) {
	api := &stubAPI{
		status: http.StatusOK,
		body:   `{"email":"john@example.com","valid":true,"reason":"Valid email"}`,
	}
	srv := newStubServer(t, api)
	recorder := metrics.NewInMemory()
	client := New(srv.URL, WithMetrics(recorder))

	result, err := client.Validate(context.Background(), "john@example.com")

	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "john@example.com", result.Email)
	assert.Equal(t, "Valid email", result.Reason)
	assert.Equal(t, "john@example.com", api.lastEmail.Load())
	assert.Equal(t, uint64(1), recorder.Snapshot().ValidationsValid)
}

func TestValidate_InvalidEmail(t *testing.T) {
	api := &stubAPI{
		status: http.StatusOK,
		body:   `{"valid":false,"reason":"Domain does not exist"}`,
	}
	srv := newStubServer(t, api)
	recorder := metrics.NewInMemory()
	client := New(srv.URL, WithMetrics(recorder))

	result, err := client.Validate(context.Background(), "invalid@fake.com")

	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "Domain does not exist", result.Reason)
	assert.Equal(t, uint64(1), recorder.Snapshot().ValidationsInvalid)
}

func TestValidate_EncodesEmailAsQueryParam(t *testing.T) {
	api := &stubAPI{status: http.StatusOK, body: `{"valid":true,"reason":"ok"}`}
	srv := newStubServer(t, api)
	client := New(srv.URL + "/")

	email := "weird+tag&x=1 @example.com"
	_, err := client.Validate(context.Background(), email)

	require.NoError(t, err)
	assert.Equal(t, email, api.lastEmail.Load())
}

func TestValidate_PropagatesRequestID(t *testing.T) {
	api := &stubAPI{status: http.StatusOK, body: `{"valid":true,"reason":"ok"}`}
	srv := newStubServer(t, api)
	client := New(srv.URL)

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-123")
	_, err := client.Validate(ctx, "john@example.com")

	require.NoError(t, err)
	assert.Equal(t, "req-123", api.lastReqID.Load())
}

func TestValidate_Unavailable(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{"server_error", http.StatusInternalServerError, "", http.StatusInternalServerError},
		{"not_found", http.StatusNotFound, "", http.StatusNotFound},
		{"malformed_json", http.StatusOK, `{"valid":`, http.StatusOK},
		{"empty_body", http.StatusOK, "", http.StatusOK},
		{"null_body", http.StatusOK, "null", http.StatusOK},
		{"missing_valid_flag", http.StatusOK, `{"email":"a@b.c","reason":"?"}`, http.StatusOK},
		{"wrong_type", http.StatusOK, `{"valid":"yes","reason":"ok"}`, http.StatusOK},
		{"too_large", http.StatusOK, `{"valid":true,"reason":"` + strings.Repeat("a", maxResponseBytes) + `"}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newStubServer(t, &stubAPI{status: tt.status, body: tt.body})
			recorder := metrics.NewInMemory()
			client := New(srv.URL, WithMetrics(recorder))

			result, err := client.Validate(context.Background(), "test@example.com")

			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.Is(err, ErrUnavailable), "expected ErrUnavailable, got %v", err)

			var unavailable *UnavailableError
			require.True(t, errors.As(err, &unavailable))
			assert.Equal(t, tt.wantStatus, unavailable.StatusCode)
			assert.Equal(t, uint64(1), recorder.Snapshot().ValidationsUnavailable)
		})
	}
}

func TestValidate_Unreachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	client := New("http://" + addr)

	_, err = client.Validate(context.Background(), "test@example.com")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestValidate_Timeout(t *testing.T) {
	api := &stubAPI{
		status: http.StatusOK,
		body:   `{"valid":true,"reason":"slow"}`,
		delay:  2 * time.Second,
	}
	srv := newStubServer(t, api)
	client := New(srv.URL, WithHTTPClient(NewHTTPClient(100*time.Millisecond)))

	start := time.Now()
	_, err := client.Validate(context.Background(), "test@example.com")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), time.Second)
}

func TestValidate_ContextCanceled(t *testing.T) {
	api := &stubAPI{status: http.StatusOK, body: `{"valid":true}`, delay: time.Second}
	srv := newStubServer(t, api)
	client := New(srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Validate(ctx, "test@example.com")

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnavailableError_Message(t *testing.T) {
	err := &UnavailableError{StatusCode: 503, Err: errors.New("boom")}
	assert.Equal(t, "email validation unavailable: status 503: boom", err.Error())

	err = &UnavailableError{Err: errors.New("dial refused")}
	assert.Equal(t, "email validation unavailable: dial refused", err.Error())
}

func TestNewHTTPClient_DefaultTimeout(t *testing.T) {
	hc := NewHTTPClient(0)
	assert.Equal(t, DefaultTimeout, hc.Timeout)
}

func TestClient_BaseURL(t *testing.T) {
	assert.Equal(t, "https://validator.example", New("https://validator.example/").BaseURL())
	assert.Equal(t, "http://10.0.0.5:8081/api", New("http://10.0.0.5:8081/api").BaseURL())
}
