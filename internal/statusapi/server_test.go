package statusapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostlease/hostlease/pkg/lease"
)

type fakeProvider struct{}

func (fakeProvider) Acquire(context.Context, lease.Definition) (string, error) { return "lease-A", nil }
func (fakeProvider) Renew(context.Context, lease.Definition) error             { return nil }
func (fakeProvider) Release(context.Context, lease.Definition) error           { return nil }

func newTestManager(t *testing.T) *lease.Manager {
	t.Helper()
	m, err := lease.New(fakeProvider{}, lease.Config{
		AccountName:  "acct",
		HostID:       "host-1",
		InstanceID:   "instance-1",
		LeaseTimeout: 15 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(m.Dispose)
	return m
}

func TestHealthzAlwaysOK(t *testing.T) {
	s := New(nil, nil, Config{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"healthy"`)
	assert.Contains(t, rr.Body.String(), `"service":"hostleased"`)
}

func TestLeaseRouteReportsSnapshot(t *testing.T) {
	m := newTestManager(t)
	deadline := time.Now().Add(time.Second)
	for !m.HasLease() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	s := New(m, nil, Config{})

	req := httptest.NewRequest(http.MethodGet, "/v1/lease", nil)
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"leaseId":"lease-A"`)
}

func TestV1RoutesRequireBearerWhenSecretSet(t *testing.T) {
	s := New(nil, nil, Config{JWTSecret: "a-very-secret-key", JWTIssuer: "hostleased"})

	req := httptest.NewRequest(http.MethodGet, "/v1/lease", nil)
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "hostleased",
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte("a-very-secret-key"))
	require.NoError(t, err)

	req2 := httptest.NewRequest(http.MethodGet, "/v1/lease", nil)
	req2.Header.Set("Authorization", "Bearer "+signed)
	rr2 := httptest.NewRecorder()
	s.ServeHTTP(rr2, req2)
	assert.Equal(t, http.StatusServiceUnavailable, rr2.Code) // manager not configured, but auth passed
}

func TestHealthzNeverRequiresAuth(t *testing.T) {
	s := New(nil, nil, Config{JWTSecret: "a-very-secret-key"})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
