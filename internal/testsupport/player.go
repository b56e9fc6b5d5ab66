package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// FakePlayer is an httptest-backed stand-in for the VLC HTTP interface.
type FakePlayer struct {
	Server *httptest.Server

	mu       sync.Mutex
	state    string
	rate     float64
	failing  bool
	commands []float64
}

// NewFakePlayer starts a fake player in the given state and rate.
func NewFakePlayer(t testing.TB, state string, rate float64) *FakePlayer {
	t.Helper()

	p := &FakePlayer{state: state, rate: rate}
	p.Server = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.Server.Close)
	return p
}

// URL returns the base address of the fake player.
func (p *FakePlayer) URL() string {
	return p.Server.URL
}

// SetState changes the reported playback state.
func (p *FakePlayer) SetState(state string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
}

// SetFailing makes every request answer 500 while enabled.
func (p *FakePlayer) SetFailing(failing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failing = failing
}

// Rate returns the current playback rate.
func (p *FakePlayer) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

// Commands returns every rate value received.
func (p *FakePlayer) Commands() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.commands...)
}

func (p *FakePlayer) serve(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failing || r.URL.Path != "/requests/status.json" {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if r.URL.Query().Get("command") == "rate" {
		if rate, err := strconv.ParseFloat(r.URL.Query().Get("val"), 64); err == nil {
			p.rate = rate
			p.commands = append(p.commands, rate)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"state": p.state,
		"rate":  p.rate,
		"information": map[string]any{
			"category": map[string]any{
				"Stream 0": map[string]string{"Frame rate": "25.000000"},
			},
		},
	})
}
