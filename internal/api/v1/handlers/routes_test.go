package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	gorillaws "github.com/gorilla/websocket"
	v1ws "github.com/regscout/regscout/internal/api/v1/handlers/websocket"
	"github.com/regscout/regscout/internal/config"
	"github.com/regscout/regscout/internal/connections"
	"github.com/regscout/regscout/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAssistantsAPI answers just enough of the Assistants API for a run
// that completes on the first poll.
func fakeAssistantsAPI(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/threads":
			_, _ = w.Write([]byte(`{"id":"thread_1","object":"thread"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v1/threads/thread_1/messages":
			_, _ = w.Write([]byte(`{"id":"msg_user","object":"thread.message","role":"user"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v1/threads/thread_1/runs":
			_, _ = w.Write([]byte(`{"id":"run_1","object":"thread.run","thread_id":"thread_1","status":"completed"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/threads/thread_1/messages":
			if r.URL.Query().Get("run_id") == "" {
				_, _ = w.Write([]byte(`{"object":"list","data":[],"has_more":false}`))
				return
			}
			_, _ = w.Write([]byte(`{"object":"list","has_more":false,"data":[{"id":"msg_asst","object":"thread.message","role":"assistant","content":[{"type":"text","text":{"value":"Part 820 is the QMSR.","annotations":[]}}]}]}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newRouter(t *testing.T) *httptest.Server {
	t.Helper()
	api := fakeAssistantsAPI(t)

	cfg := &config.Config{
		Environment: "testing",
		OpenAI: config.OpenAIConfig{
			APIKey:      "sk-test",
			AssistantID: "asst_1",
			BaseURL:     api.URL + "/v1",
		},
		Assistant: config.AssistantConfig{
			PollInterval: 10 * time.Millisecond,
			RunTimeout:   5 * time.Second,
			DefaultTool:  "Search_FDA_Guidance_Docs",
		},
		ECFR: config.ECFRConfig{BaseURL: "https://www.ecfr.gov"},
		Session: config.SessionConfig{
			CookieName: "regscout_session",
			TTL:        time.Hour,
			JWTSecret:  "test-secret-0123456789",
		},
		RateLimit: config.RateLimitConfig{Enabled: true, Chat: 1, Widget: 2, Window: time.Minute},
	}

	svc, err := services.InitializeServices(cfg)
	require.NoError(t, err)

	router := mux.NewRouter()
	RegisterRoutes(router, svc, connections.NewManager(connections.DefaultTimeouts), cfg.RateLimit)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestRoutes_EndToEnd(t *testing.T) {
	server := newRouter(t)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	// Without the widget cookie the API refuses.
	resp, err := client.Get(server.URL + "/v1/messages")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = client.Get(server.URL + "/v1/widget.js")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(server.URL + "/v1/messages")
	require.NoError(t, err)
	var history struct {
		Messages []map[string]interface{} `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	resp.Body.Close()
	assert.Empty(t, history.Messages)

	resp, err = client.Post(server.URL+"/v1/messages", "application/json", bytes.NewBufferString(`{"content":"What is Part 820?"}`))
	require.NoError(t, err)
	var sent struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sent))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "assistant", sent.Message.Role)
	assert.Equal(t, "Part 820 is the QMSR.", sent.Message.Content)

	// The rate limit allows one message per minute in this configuration.
	resp, err = client.Post(server.URL+"/v1/messages", "application/json", bytes.NewBufferString(`{"content":"again"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/v1/session", nil)
	require.NoError(t, err)
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = client.Get(server.URL + "/v1/messages")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRoutes_WidgetRateLimit(t *testing.T) {
	server := newRouter(t)

	// Each cookieless load would start a new session and thread.
	for i := 0; i < 2; i++ {
		resp, err := http.Get(server.URL + "/v1/widget.js")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := http.Get(server.URL + "/v1/widget.js")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestRoutes_WebSocketSharesChatBudget(t *testing.T) {
	server := newRouter(t)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	resp, err := client.Get(server.URL + "/v1/widget.js")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Post(server.URL+"/v1/messages", "application/json", bytes.NewBufferString(`{"content":"What is Part 820?"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	serverURL, err := url.Parse(server.URL)
	require.NoError(t, err)
	header := http.Header{}
	for _, c := range jar.Cookies(serverURL) {
		header.Add("Cookie", c.String())
	}

	conn, _, err := gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/v1/ws", header)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame v1ws.ServerFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, v1ws.FrameHistory, frame.Type)

	require.NoError(t, conn.WriteJSON(v1ws.ClientFrame{Type: "message", Content: "again"}))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, v1ws.FrameError, frame.Type)
	assert.Equal(t, "Rate limit exceeded", frame.Error)
}

func TestRoutes_PageAndHealth(t *testing.T) {
	server := newRouter(t)

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))

	resp, err = http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(server.URL+"/healthz", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
