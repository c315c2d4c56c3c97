package authApi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techspirit-99/stock-prediction-app/config"
	"github.com/techspirit-99/stock-prediction-app/internal/externalApi"
)

func newTestApi(url string) *AuthApi {
	cfg := &config.Config{}
	cfg.API.Timeout = 5 * time.Second
	cfg.API.AuthApi.Url = url
	return New(cfg)
}

func TestLogin(t *testing.T) {
	t.Run("returns token and user record", func(t *testing.T) {
		var gotBody map[string]string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			_, _ = w.Write([]byte(`{"access_token":"jwt-token","user":{"username":"alice"}}`))
		}))
		defer srv.Close()

		token, user, err := newTestApi(srv.URL).Login(context.Background(), "alice", "secret")
		require.NoError(t, err)

		assert.Equal(t, map[string]string{"username": "alice", "password": "secret"}, gotBody)
		assert.Equal(t, "jwt-token", token)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("maps rejected credentials to ErrUnauthorized", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"Invalid credentials"}`, http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, _, err := newTestApi(srv.URL).Login(context.Background(), "alice", "wrong")
		assert.ErrorIs(t, err, externalApi.ErrUnauthorized)
	})
}
