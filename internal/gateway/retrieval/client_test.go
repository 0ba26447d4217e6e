package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avolkov/scholarchat/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Retrieve(t *testing.T) {
	req := gateway.RetrievalRequest{
		Texts:    []string{"Paper A: summary A", "Paper B: summary B"},
		Question: "what does paper A claim?",
	}

	t.Run("returns the response field", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/generate", r.URL.Path)

			var got gateway.RetrievalRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			assert.Equal(t, req, got)

			w.Write([]byte(`{"response":"Paper A claims X."}`))
		}))
		defer server.Close()

		client := NewClient(server.URL)
		got, err := client.Retrieve(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "Paper A claims X.", got)
	})

	t.Run("sentinel answer passes through untouched", func(t *testing.T) {
		// Softening the sentinel is the router's job, not the client's.
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"response":"I don't know."}`))
		}))
		defer server.Close()

		client := NewClient(server.URL)
		got, err := client.Retrieve(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "I don't know.", got)
	})

	t.Run("missing response field is a malformed fault", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"answer":"wrong shape"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL)
		_, err := client.Retrieve(context.Background(), req)
		requireFaultKind(t, err, gateway.FaultMalformed)
	})

	t.Run("non-success status is a rejection fault", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClient(server.URL)
		_, err := client.Retrieve(context.Background(), req)
		requireFaultKind(t, err, gateway.FaultRejected)
	})

	t.Run("unreachable server is an unavailable fault", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		client := NewClient(server.URL)
		_, err := client.Retrieve(context.Background(), req)
		requireFaultKind(t, err, gateway.FaultUnavailable)
	})
}

func requireFaultKind(t *testing.T, err error, kind gateway.FaultKind) {
	t.Helper()
	var fault *gateway.Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, kind, fault.Kind)
}
