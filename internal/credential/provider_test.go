package credential

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireSendsClientCredentials(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "bot", user)
		assert.Equal(t, "s3cret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "workflow.decisions", r.PostForm.Get("scope"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	p := NewProvider(Config{TokenURL: srv.URL, ClientID: "bot", ClientSecret: "s3cret", Scope: "workflow.decisions"})

	tok, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	_, err = p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "every call must hit the token endpoint")
}

func TestAcquireFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-2xx", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
		}},
		{"missing token", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"token_type":"bearer"}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := NewProvider(Config{TokenURL: srv.URL, ClientID: "bot", ClientSecret: "x"})
			_, err := p.Acquire(context.Background())
			var authErr *AuthError
			require.True(t, errors.As(err, &authErr), "got %v", err)
		})
	}
}

func TestAcquireUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewProvider(Config{TokenURL: url, ClientID: "bot"}).Acquire(context.Background())
	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
}
