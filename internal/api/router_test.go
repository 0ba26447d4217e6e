package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avolkov/scholarchat/internal/config"
	"github.com/avolkov/scholarchat/internal/domain"
	"github.com/avolkov/scholarchat/internal/engine"
	"github.com/avolkov/scholarchat/internal/gateway"
	"github.com/avolkov/scholarchat/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   any             `json:"error"`
}

type testBackends struct {
	chatCalls      atomic.Int32
	retrievalCalls atomic.Int32
	lastRetrieval  atomic.Pointer[gateway.RetrievalRequest]
}

// newTestAPI stands up the full router against fake chat, retrieval and
// search services, and returns a client helper bound to one session.
func newTestAPI(t *testing.T) (*httptest.Server, *testBackends, string) {
	t.Helper()
	backends := &testBackends{}

	chatServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backends.chatCalls.Add(1)
		w.Write([]byte(`{"choices":[{"message":{"content":"chat answer"}}]}`))
	}))
	t.Cleanup(chatServer.Close)

	retrievalServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backends.retrievalCalls.Add(1)
		var req gateway.RetrievalRequest
		json.NewDecoder(r.Body).Decode(&req)
		backends.lastRetrieval.Store(&req)
		w.Write([]byte(`{"response":"retrieval answer"}`))
	}))
	t.Cleanup(retrievalServer.Close)

	searchServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		w.Write([]byte(`{"articles":[
			{"id":"a1","title":"Attention Is All You Need","description":"The transformer paper.","url":"https://example.org/a1"},
			{"id":"a2","title":"BERT","description":"Bidirectional encoders.","url":"https://example.org/a2"}
		]}`))
	}))
	t.Cleanup(searchServer.Close)

	cfg := &config.Config{
		Server: config.ServerConfig{MiddlewareTimeout: 30 * time.Second},
		Gateway: config.GatewayConfig{
			DefaultProvider: "openai",
			OpenAI:          config.OpenAIConfig{BaseURL: chatServer.URL, APIKey: "test-key"},
			Retrieval:       config.RetrievalConfig{BaseURL: retrievalServer.URL},
		},
		Search: config.SearchConfig{BaseURL: searchServer.URL},
		Auth:   config.AuthConfig{JWTSecret: "test-secret", SessionTokenTTL: time.Hour},
	}

	apiServer := httptest.NewServer(NewRouter(cfg, nil, nil))
	t.Cleanup(apiServer.Close)

	token, err := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTokenTTL).Issue("session-1")
	require.NoError(t, err)

	return apiServer, backends, token
}

func doJSON(t *testing.T, method, url, token string, body any) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestAPI_Health(t *testing.T) {
	server, _, _ := newTestAPI(t)

	status, env := doJSON(t, http.MethodGet, server.URL+"/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
}

func TestAPI_RequiresToken(t *testing.T) {
	server, _, _ := newTestAPI(t)

	status, env := doJSON(t, http.MethodGet, server.URL+"/api/v1/dialogues/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)

	status, _ = doJSON(t, http.MethodGet, server.URL+"/api/v1/dialogues/", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAPI_DialogueFlow(t *testing.T) {
	server, backends, token := newTestAPI(t)
	base := server.URL + "/api/v1"

	// Create a dialogue.
	status, env := doJSON(t, http.MethodPost, base+"/dialogues/", token, nil)
	require.Equal(t, http.StatusCreated, status)

	var created struct {
		Dialogue domain.Dialogue `json:"dialogue"`
		Locator  string          `json:"locator"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	dialogueID := created.Dialogue.ID
	require.NotEmpty(t, dialogueID)
	assert.Equal(t, "New Dialogue", created.Dialogue.Summary)
	assert.Equal(t, "dialogue="+dialogueID, created.Locator)

	// First turn goes to the chat backend with no selection.
	status, env = doJSON(t, http.MethodPost, base+"/dialogues/"+dialogueID+"/turns", token,
		map[string]string{"query": "what is attention?"})
	require.Equal(t, http.StatusOK, status)

	var result engine.TurnResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, engine.BackendChat, result.Turn.Backend)
	assert.Equal(t, engine.TurnFulfilled, result.Turn.State)
	assert.Equal(t, "chat answer", result.Assistant.Content)
	require.Len(t, result.Dialogue.Messages, 2)
	assert.Equal(t, int32(1), backends.chatCalls.Load())
	assert.Zero(t, backends.retrievalCalls.Load())

	// The first question becomes the summary.
	status, env = doJSON(t, http.MethodGet, base+"/dialogues/"+dialogueID+"/", token, nil)
	require.Equal(t, http.StatusOK, status)
	var fetched domain.Dialogue
	require.NoError(t, json.Unmarshal(env.Data, &fetched))
	assert.Equal(t, "what is attention?", fetched.Summary)

	// Search records source items on the session.
	status, env = doJSON(t, http.MethodGet, base+"/articles?q=transformers", token, nil)
	require.Equal(t, http.StatusOK, status)
	var items []domain.SourceItem
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 2)

	// Select one article; the next turn routes to retrieval.
	status, env = doJSON(t, http.MethodPost, base+"/selection/a1/toggle", token, nil)
	require.Equal(t, http.StatusOK, status)
	var toggled struct {
		Selected      bool     `json:"selected"`
		SelectedItems []string `json:"selected_items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &toggled))
	assert.True(t, toggled.Selected)
	assert.Equal(t, []string{"a1"}, toggled.SelectedItems)

	status, env = doJSON(t, http.MethodPost, base+"/dialogues/"+dialogueID+"/turns", token,
		map[string]string{"query": "summarize the selected paper"})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, engine.BackendRetrieval, result.Turn.Backend)
	assert.Equal(t, "retrieval answer", result.Assistant.Content)
	assert.Equal(t, int32(1), backends.chatCalls.Load(), "selection active: chat backend must not be called")
	assert.Equal(t, int32(1), backends.retrievalCalls.Load())

	retrievalReq := backends.lastRetrieval.Load()
	require.NotNil(t, retrievalReq)
	assert.Equal(t, []string{"Attention Is All You Need: The transformer paper."}, retrievalReq.Texts)
	assert.Equal(t, "summarize the selected paper", retrievalReq.Question)

	// Deselect, then submit an empty query: canned reply, no backend call.
	status, _ = doJSON(t, http.MethodPost, base+"/selection/a1/toggle", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, env = doJSON(t, http.MethodPost, base+"/dialogues/"+dialogueID+"/turns", token,
		map[string]string{"query": "   "})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, engine.BackendNone, result.Turn.Backend)
	assert.Equal(t, engine.ReplyEmptyQuery, result.Assistant.Content)
	assert.Equal(t, int32(1), backends.chatCalls.Load())
	assert.Equal(t, int32(1), backends.retrievalCalls.Load())

	// Current indicator and state view.
	status, env = doJSON(t, http.MethodPut, base+"/dialogues/"+dialogueID+"/current", token, nil)
	require.Equal(t, http.StatusOK, status)
	var current struct {
		CurrentDialogueID string `json:"current_dialogue_id"`
		Locator           string `json:"locator"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &current))
	assert.Equal(t, dialogueID, current.CurrentDialogueID)
	assert.Equal(t, "dialogue="+dialogueID, current.Locator)

	status, env = doJSON(t, http.MethodGet, base+"/state", token, nil)
	require.Equal(t, http.StatusOK, status)
	var view struct {
		Dialogues         []domain.Dialogue   `json:"dialogues"`
		CurrentDialogueID string              `json:"current_dialogue_id"`
		SelectedItems     []string            `json:"selected_items"`
		SourceItems       []domain.SourceItem `json:"source_items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Len(t, view.Dialogues, 1)
	assert.Len(t, view.Dialogues[0].Messages, 6)
	assert.Equal(t, dialogueID, view.CurrentDialogueID)
	assert.Empty(t, view.SelectedItems)
	assert.Len(t, view.SourceItems, 2)
}

func TestAPI_UnknownDialogue(t *testing.T) {
	server, _, token := newTestAPI(t)
	base := server.URL + "/api/v1"

	status, _ := doJSON(t, http.MethodGet, base+"/dialogues/missing/", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, http.MethodPut, base+"/dialogues/missing/current", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doJSON(t, http.MethodPost, base+"/dialogues/missing/turns", token,
		map[string]string{"query": "hello"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_SubmitTurnValidation(t *testing.T) {
	server, _, token := newTestAPI(t)
	base := server.URL + "/api/v1"

	status, env := doJSON(t, http.MethodPost, base+"/dialogues/", token, nil)
	require.Equal(t, http.StatusCreated, status)
	var created struct {
		Dialogue domain.Dialogue `json:"dialogue"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	status, _ = doJSON(t, http.MethodPost, base+"/dialogues/"+created.Dialogue.ID+"/turns", token,
		map[string]string{"query": "hi", "provider": "mistral"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_GatewayFailureBecomesApology(t *testing.T) {
	server, backends, token := newTestAPI(t)
	base := server.URL + "/api/v1"

	status, env := doJSON(t, http.MethodPost, base+"/dialogues/", token, nil)
	require.Equal(t, http.StatusCreated, status)
	var created struct {
		Dialogue domain.Dialogue `json:"dialogue"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	// "gemini" passes validation but is not registered without an api
	// key: the turn settles as failed with the apology, never a 5xx.
	status, env = doJSON(t, http.MethodPost, base+"/dialogues/"+created.Dialogue.ID+"/turns", token,
		map[string]string{"query": "hello", "provider": "gemini"})
	require.Equal(t, http.StatusOK, status)

	var result engine.TurnResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, engine.TurnFailed, result.Turn.State)
	assert.Equal(t, engine.ReplyFailure, result.Assistant.Content)
	require.Len(t, result.Dialogue.Messages, 2, "the failed pair is still recorded")
	assert.Zero(t, backends.chatCalls.Load())
}
