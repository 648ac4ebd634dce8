package mockllm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmbench/llmbench/internal/chat"
)

func chatRequest(apiKey, model, prompt string) chat.Request {
	return chat.Request{APIKey: apiKey, Model: model, Prompt: prompt, Timeout: 5 * time.Second}
}

func TestState_FailEvery(t *testing.T) {
	state := NewState()
	state.SetFailEvery(3, 502)

	var statuses []int
	for i := 0; i < 6; i++ {
		_, status, _ := state.record("m", "p")
		statuses = append(statuses, status)
	}
	assert.Equal(t, []int{0, 0, 502, 0, 0, 502}, statuses)
	assert.Equal(t, 6, state.Requests())

	state.Reset()
	assert.Zero(t, state.Requests())
	assert.Empty(t, state.Prompts())
}

func TestServer_ChatCompletion(t *testing.T) {
	server := NewServer(nil)
	upstream := httptest.NewServer(server)
	defer upstream.Close()

	client := chat.NewClient()
	req := chatRequest("sk-test", "gpt-4o", "Tell me a short joke")
	req.Endpoint = upstream.URL

	out := client.Execute(context.Background(), req)
	require.True(t, out.Succeeded(), "cause=%s err=%v", out.Cause, out.Err)
	assert.Equal(t, "gpt-4o", out.Response.Model)
	require.Len(t, out.Response.Choices, 1)
	assert.NotEmpty(t, out.Response.Choices[0].Message.Content)

	assert.Equal(t, []string{"Tell me a short joke"}, server.State().Prompts())
	assert.Equal(t, []string{"gpt-4o"}, server.State().Models())
}

func TestServer_APIKey(t *testing.T) {
	server := NewServer(nil)
	server.State().SetAPIKey("sk-right")
	upstream := httptest.NewServer(server)
	defer upstream.Close()

	client := chat.NewClient()

	req := chatRequest("sk-wrong", "m", "p")
	req.Endpoint = upstream.URL
	out := client.Execute(context.Background(), req)
	assert.Equal(t, chat.CauseStatus, out.Cause)
	assert.Equal(t, http.StatusUnauthorized, out.StatusCode)

	req.APIKey = "sk-right"
	out = client.Execute(context.Background(), req)
	assert.True(t, out.Succeeded())
}

func TestServer_InjectedFailure(t *testing.T) {
	server := NewServer(nil)
	server.State().SetFailEvery(1, http.StatusTooManyRequests)
	upstream := httptest.NewServer(server)
	defer upstream.Close()

	req := chatRequest("k", "m", "p")
	req.Endpoint = upstream.URL
	out := chat.NewClient().Execute(context.Background(), req)

	assert.False(t, out.Succeeded())
	assert.Equal(t, chat.CauseStatus, out.Cause)
	assert.Equal(t, http.StatusTooManyRequests, out.StatusCode)
	assert.Contains(t, out.Body, "service unavailable")
}

func TestServer_LatencyAndTimeout(t *testing.T) {
	server := NewServer(nil)
	server.State().SetLatency(200 * time.Millisecond)
	upstream := httptest.NewServer(server)
	defer upstream.Close()

	client := chat.NewClient()

	req := chatRequest("k", "m", "p")
	req.Endpoint = upstream.URL
	out := client.Execute(context.Background(), req)
	require.True(t, out.Succeeded())
	assert.GreaterOrEqual(t, out.Latency, 200*time.Millisecond)

	req.Timeout = 50 * time.Millisecond
	out = client.Execute(context.Background(), req)
	assert.Equal(t, chat.CauseTimeout, out.Cause)
}

func TestServer_ControlEndpoints(t *testing.T) {
	server := NewServer(nil)

	body, err := json.Marshal(TestConfig{LatencyMs: 5, APIKey: "sk", FailEvery: 2, FailStatus: 500})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("POST", "/_test/config", bytes.NewReader(body)))
	assert.Equal(t, http.StatusOK, w.Code)

	_, status, _ := server.State().record("m", "p")
	assert.Zero(t, status)
	_, status, _ = server.State().record("m", "p")
	assert.Equal(t, 500, status)

	w = httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("POST", "/_test/reset", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, server.State().Requests())

	w = httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mock-chat-completions")
}

func TestServer_BadRequest(t *testing.T) {
	server := NewServer(nil)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("POST", "/v1/chat/completions", bytes.NewReader([]byte("{"))))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, server.State().Requests())
}
