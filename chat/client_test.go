package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRespond(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "hello", req.Messages[1].Content)

		_ = json.NewEncoder(w).Encode(chatResponse{Message: message{Role: "assistant", Content: "hi there"}, Done: true})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/", Model: "test-model", SystemPrompt: "be brief"})
	got, err := c.Respond(context.Background(), "a@example.com", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", got)
}

func TestClientRespondErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType ErrorType
	}{
		{"model missing", http.StatusNotFound, "", ErrTypeModelNotFound},
		{"backend error", http.StatusInternalServerError, `{"error":"out of memory"}`, ErrTypeInvalidResponse},
		{"bad json", http.StatusOK, `{`, ErrTypeInvalidResponse},
		{"empty reply", http.StatusOK, `{"message":{"role":"assistant","content":""}}`, ErrTypeInvalidResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(Config{BaseURL: srv.URL}).Respond(context.Background(), "", "x")
			var ce *ClientError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.wantType, ce.Type)
		})
	}
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(Config{BaseURL: url}).Respond(context.Background(), "", "x")
	var ce *ClientError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrTypeUnavailable, ce.Type)
}

func TestStaticResponder(t *testing.T) {
	got, err := StaticResponder{}.Respond(context.Background(), "", "anything")
	require.NoError(t, err)
	assert.Equal(t, Placeholder, got)

	got, _ = StaticResponder{Reply: "fixed"}.Respond(context.Background(), "", "anything")
	assert.Equal(t, "fixed", got)
}
