package userpool

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/peoplehub/portal-api/internal/errors"
	"github.com/peoplehub/portal-api/internal/ports"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{}, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BaseURL is required")
}

func TestClient_Register(t *testing.T) {
	var captured registerRequest
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/signup", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(registerResponse{
			Confirmed:          false,
			CodeDeliveryMasked: "n***@example.com",
		})
	}))

	result, err := client.Register(context.Background(), ports.RegisterInput{
		Username:   "new.hire@example.com",
		Password:   "secret password",
		Email:      "new.hire@example.com",
		GivenName:  "New",
		FamilyName: "Hire",
	})
	require.NoError(t, err)
	assert.True(t, result.ConfirmationRequired)
	assert.Equal(t, "n***@example.com", result.Destination)
	assert.Equal(t, "new.hire@example.com", captured.Username)
	assert.Equal(t, "New", captured.GivenName)
}

func TestClient_RegisterConflict(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(errorEnvelope{Code: "username_exists"})
	}))

	_, err := client.Register(context.Background(), ports.RegisterInput{
		Username: "taken@example.com",
		Password: "secret password",
	})
	assert.True(t, apperrors.IsConflict(err))
	assert.Equal(t, "an account with this email already exists", apperrors.UserMessage(err))
}

func TestClient_RegisterWeakPassword(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(errorEnvelope{
			Code:    "invalid_password",
			Message: "password must contain at least one number",
		})
	}))

	_, err := client.Register(context.Background(), ports.RegisterInput{
		Username: "a@example.com",
		Password: "weak",
	})
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "password must contain at least one number", apperrors.UserMessage(err))
}

func TestClient_Confirm(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		envelope errorEnvelope
		check    func(t *testing.T, err error)
	}{
		{
			name:   "success",
			status: http.StatusOK,
			check: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name:     "wrong code",
			status:   http.StatusBadRequest,
			envelope: errorEnvelope{Code: "code_mismatch"},
			check: func(t *testing.T, err error) {
				assert.True(t, apperrors.IsUnauthorized(err))
			},
		},
		{
			name:     "expired code",
			status:   http.StatusBadRequest,
			envelope: errorEnvelope{Code: "expired_code"},
			check: func(t *testing.T, err error) {
				assert.True(t, apperrors.IsExpired(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/confirm", r.URL.Path)
				w.WriteHeader(tt.status)
				if tt.status != http.StatusOK {
					json.NewEncoder(w).Encode(tt.envelope)
				} else {
					w.Write([]byte("{}"))
				}
			}))

			err := client.Confirm(context.Background(), ports.ConfirmInput{
				Username: "a@example.com",
				Code:     "123456",
			})
			tt.check(t, err)
		})
	}
}

func TestClient_SignIn(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/signin", r.URL.Path)
		json.NewEncoder(w).Encode(signInResponse{
			Sub:        "pool-sub-1",
			Email:      "a@example.com",
			GivenName:  "Alice",
			FamilyName: "Anderson",
			ExpiresIn:  3600,
		})
	}))

	identity, err := client.SignIn(context.Background(), ports.SignInInput{
		Username: "a@example.com",
		Password: "secret password",
	})
	require.NoError(t, err)
	assert.Equal(t, "pool-sub-1", identity.UserID)
	assert.Equal(t, "Alice", identity.FirstName)
	assert.Equal(t, "Anderson", identity.LastName)
	assert.WithinDuration(t, time.Now().Add(time.Hour), identity.ExpiresAt, 5*time.Second)
}

func TestClient_SignInBadCredentials(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(errorEnvelope{Code: "not_authorized"})
	}))

	_, err := client.SignIn(context.Background(), ports.SignInInput{
		Username: "a@example.com",
		Password: "wrong",
	})
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestClient_UnknownErrorFallsBackOnStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("upstream blew up"))
	}))

	_, err := client.SignIn(context.Background(), ports.SignInInput{
		Username: "a@example.com",
		Password: "pw",
	})
	assert.True(t, apperrors.IsInternal(err))
}
