package mockllm

import (
	"sync"
	"time"
)

// State holds the mock server's behavior knobs and request log
type State struct {
	mu sync.RWMutex

	latency time.Duration
	apiKey  string // when set, requests must carry "Bearer <apiKey>"

	// Every failEvery-th completion request answers failStatus instead
	failEvery  int
	failStatus int
	failBody   string

	requests int
	prompts  []string
	models   []string
}

// NewState creates a mock state that answers every request immediately
func NewState() *State {
	return &State{failStatus: 503, failBody: `{"error":{"message":"service unavailable"}}`}
}

// SetLatency sets the artificial delay before each response
func (s *State) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// SetAPIKey requires the given bearer token. An empty key accepts anything.
func (s *State) SetAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = key
}

// SetFailEvery makes every n-th request fail with status. n <= 0 disables
// failures, n == 1 fails all requests.
func (s *State) SetFailEvery(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failEvery = n
	if status != 0 {
		s.failStatus = status
	}
}

// Reset clears the request log and restores default behavior
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = 0
	s.apiKey = ""
	s.failEvery = 0
	s.failStatus = 503
	s.requests = 0
	s.prompts = nil
	s.models = nil
}

// Requests returns the number of completion requests received
func (s *State) Requests() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests
}

// Prompts returns the prompts received, in order
func (s *State) Prompts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.prompts...)
}

// Models returns the model names received, in order
func (s *State) Models() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.models...)
}

func (s *State) authorized(header string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKey == "" || header == "Bearer "+s.apiKey
}

// record logs a request and decides its fate: the delay to apply and, for a
// failing request, the status and body to answer with (status 0 means success)
func (s *State) record(model, prompt string) (delay time.Duration, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests++
	s.prompts = append(s.prompts, prompt)
	s.models = append(s.models, model)

	if s.failEvery > 0 && s.requests%s.failEvery == 0 {
		return s.latency, s.failStatus, s.failBody
	}
	return s.latency, 0, ""
}
