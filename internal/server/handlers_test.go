package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrelay/chatrelay/internal/auth"
	"github.com/chatrelay/chatrelay/internal/chat"
	"github.com/chatrelay/chatrelay/internal/config"
	"github.com/chatrelay/chatrelay/internal/provider"
	"github.com/chatrelay/chatrelay/internal/store"
	"github.com/chatrelay/chatrelay/pkg/types"
)

// stubStream yields canned fragments then finishes (or fails).
type stubStream struct {
	fragments []string
	err       error
	pos       int
}

func (s *stubStream) Recv() (string, error) {
	if s.pos >= len(s.fragments) {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	frag := s.fragments[s.pos]
	s.pos++
	return frag, nil
}

func (s *stubStream) Close() {}

// stubClient is a completion backend producing canned replies.
type stubClient struct {
	fragments []string
	streamErr error
}

func (c *stubClient) ID() string { return "stub" }

func (c *stubClient) StreamCompletion(context.Context, []types.Turn) (provider.Stream, error) {
	return &stubStream{fragments: c.fragments, err: c.streamErr}, nil
}

// newTestServer builds a server on a temp database. A nil client starts it
// degraded.
func newTestServer(t *testing.T, client provider.Client) (*Server, *httptest.Server) {
	t.Helper()

	cfg := config.Default()
	cfg.SecretKey = "test-secret"
	cfg.DatabasePath = filepath.Join(t.TempDir(), "chat.db")
	cfg.MaxConnections = 2

	st, err := store.Open(cfg.DatabasePath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	authSvc := auth.New(cfg.SecretKey, 30*time.Minute, st)

	var chatSvc *chat.Service
	if client != nil {
		chatSvc = chat.NewService(client, "")
	}

	srv := New(cfg, st, authSvc, chatSvc)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	t.Cleanup(func() { srv.bus.Close() })

	return srv, ts
}

func postJSON(t *testing.T, url string, body any, token string) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func getJSON(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// registerUser creates an account through the API and returns a bearer
// token for it.
func registerUser(t *testing.T, ts *httptest.Server, username, password string) (*types.User, string) {
	t.Helper()

	resp := postJSON(t, ts.URL+"/users", CreateUserRequest{Username: username, Password: password}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := decode[*types.User](t, resp)

	form := url.Values{"username": {username}, "password": {password}}
	tokenResp, err := http.PostForm(ts.URL+"/token", form)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, tokenResp.StatusCode)
	token := decode[types.Token](t, tokenResp)
	require.Equal(t, "bearer", token.TokenType)

	return user, token.AccessToken
}

func TestRootAndHealth(t *testing.T) {
	_, ts := newTestServer(t, &stubClient{fragments: []string{"ok"}})

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	health := decode[types.HealthStatus](t, resp)
	assert.Equal(t, types.HealthOK, health.Status)
	require.Len(t, health.Checks, 2)
}

func TestHealthDegradedWithoutBackend(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	health := decode[types.HealthStatus](t, resp)
	assert.Equal(t, types.HealthDegraded, health.Status)
}

func TestCreateUserDuplicate(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/users", CreateUserRequest{Username: "alice", Password: "s3cret"}, "")
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/users", CreateUserRequest{Username: "alice", Password: "other"}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errResp := decode[ErrorResponse](t, resp)
	assert.Equal(t, "Username already registered", errResp.Error.Message)
}

func TestCreateUserMissingFields(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/users", CreateUserRequest{Username: "alice"}, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUserListAndGet(t *testing.T) {
	_, ts := newTestServer(t, nil)
	user, _ := registerUser(t, ts, "alice", "s3cret")

	resp := getJSON(t, ts.URL+"/users", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users := decode[[]*types.User](t, resp)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)

	resp = getJSON(t, fmt.Sprintf("%s/users/%d", ts.URL, user.ID), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[*types.User](t, resp)
	assert.Equal(t, user.ID, got.ID)

	resp = getJSON(t, ts.URL+"/users/999", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUserResponseOmitsPasswordHash(t *testing.T) {
	_, ts := newTestServer(t, nil)
	registerUser(t, ts, "alice", "s3cret")

	resp := getJSON(t, ts.URL+"/users", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
}

func TestTokenBadCredentials(t *testing.T) {
	_, ts := newTestServer(t, nil)
	registerUser(t, ts, "alice", "s3cret")

	// Wrong password and unknown user fail the same way.
	for _, form := range []url.Values{
		{"username": {"alice"}, "password": {"wrong"}},
		{"username": {"nobody"}, "password": {"s3cret"}},
	} {
		resp, err := http.PostForm(ts.URL+"/token", form)
		require.NoError(t, err)
		errResp := decode[ErrorResponse](t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Incorrect username or password", errResp.Error.Message)
	}
}

func TestGuestSession(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := postJSON(t, ts.URL+"/auth/guest", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	guest := decode[types.GuestSession](t, resp)
	assert.NotZero(t, guest.UserID)
	assert.NotEmpty(t, guest.AccessToken)

	// The guest token authenticates against protected endpoints.
	listResp := getJSON(t, ts.URL+"/conversations", guest.AccessToken)
	listResp.Body.Close()
	assert.Equal(t, http.StatusOK, listResp.StatusCode)
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := getJSON(t, ts.URL+"/conversations", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = getJSON(t, ts.URL+"/conversations", "not-a-token")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConversationLifecycle(t *testing.T) {
	_, ts := newTestServer(t, nil)
	user, token := registerUser(t, ts, "alice", "s3cret")

	resp := postJSON(t, fmt.Sprintf("%s/users/%d/conversations", ts.URL, user.ID),
		CreateConversationRequest{Title: "my chat"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	conv := decode[*types.Conversation](t, resp)
	assert.Equal(t, "my chat", conv.Title)
	assert.Equal(t, user.ID, conv.UserID)

	resp = getJSON(t, ts.URL+"/conversations", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	convs := decode[[]*types.Conversation](t, resp)
	require.Len(t, convs, 1)

	resp = getJSON(t, fmt.Sprintf("%s/conversations/%d/messages", ts.URL, conv.ID), token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msgs := decode[[]*types.Message](t, resp)
	assert.Empty(t, msgs)
}

func TestConversationForOtherUserForbidden(t *testing.T) {
	_, ts := newTestServer(t, nil)
	_, token := registerUser(t, ts, "alice", "s3cret")
	bob, _ := registerUser(t, ts, "bob", "s3cret")

	resp := postJSON(t, fmt.Sprintf("%s/users/%d/conversations", ts.URL, bob.ID),
		CreateConversationRequest{Title: "sneaky"}, token)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestForeignConversationMessagesNotFound(t *testing.T) {
	_, ts := newTestServer(t, nil)
	alice, aliceToken := registerUser(t, ts, "alice", "s3cret")
	_, bobToken := registerUser(t, ts, "bob", "s3cret")

	resp := postJSON(t, fmt.Sprintf("%s/users/%d/conversations", ts.URL, alice.ID),
		CreateConversationRequest{Title: "private"}, aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	conv := decode[*types.Conversation](t, resp)

	// Bob sees the same 404 as for an id that does not exist.
	resp = getJSON(t, fmt.Sprintf("%s/conversations/%d/messages", ts.URL, conv.ID), bobToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = getJSON(t, fmt.Sprintf("%s/conversations/%d/messages", ts.URL, conv.ID+1000), bobToken)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChatCompletion(t *testing.T) {
	srv, ts := newTestServer(t, &stubClient{fragments: []string{"Hello", ", world"}})
	_, token := registerUser(t, ts, "alice", "s3cret")

	resp := postJSON(t, ts.URL+"/chat/completions", types.ChatRequest{Message: "hi there"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reply := decode[types.ChatResponse](t, resp)
	assert.Equal(t, "Hello, world", reply.Reply)
	require.NotZero(t, reply.ConversationID)

	// Both turns were persisted.
	msgs, err := srv.store.ListMessages(context.Background(), reply.ConversationID, 0, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, types.RoleUser, msgs[0].Role)
	assert.Equal(t, "hi there", msgs[0].Content)
	assert.Equal(t, types.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hello, world", msgs[1].Content)
}

func TestChatCompletionValidation(t *testing.T) {
	_, ts := newTestServer(t, &stubClient{fragments: []string{"x"}})
	_, token := registerUser(t, ts, "alice", "s3cret")

	resp := postJSON(t, ts.URL+"/chat/completions", types.ChatRequest{Message: "   "}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errResp := decode[ErrorResponse](t, resp)
	assert.Equal(t, "Message cannot be empty", errResp.Error.Message)

	resp = postJSON(t, ts.URL+"/chat/completions",
		types.ChatRequest{Message: strings.Repeat("a", chat.MaxMessageLength+1)}, token)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatCompletionUnknownConversation(t *testing.T) {
	_, ts := newTestServer(t, &stubClient{fragments: []string{"x"}})
	_, token := registerUser(t, ts, "alice", "s3cret")

	missing := int64(999)
	resp := postJSON(t, ts.URL+"/chat/completions",
		types.ChatRequest{Message: "hi", ConversationID: &missing}, token)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChatCompletionDegraded(t *testing.T) {
	_, ts := newTestServer(t, nil)
	_, token := registerUser(t, ts, "alice", "s3cret")

	resp := postJSON(t, ts.URL+"/chat/completions", types.ChatRequest{Message: "hi"}, token)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
