package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/matt-g-everett/ledtween/stream"
)

// Streamer is the part of stream.Streamer the API drives.
type Streamer interface {
	Apply(ctx context.Context, m stream.TargetMessage) error
	State(ctx context.Context) (stream.StateMessage, error)
}

// Api serves the web client and a small JSON interface to the streamer.
//
//	GET  /api/state    current property values of every fixture
//	POST /api/targets  a stream.TargetMessage
type Api struct {
	streamer Streamer
	mux      *http.ServeMux
}

// NewApi creates an Api serving static files from dir.
func NewApi(streamer Streamer, dir string) *Api {
	a := new(Api)
	a.streamer = streamer
	a.mux = http.NewServeMux()
	a.mux.HandleFunc("/api/state", a.handleState)
	a.mux.HandleFunc("/api/targets", a.handleTargets)
	if dir != "" {
		a.mux.Handle("/", http.FileServer(http.Dir(dir)))
	}
	return a
}

func (a *Api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *Api) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	state, err := a.streamer.State(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		log.Printf("api: writing state: %v", err)
	}
}

func (a *Api) handleTargets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var m stream.TargetMessage
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if m.Fixture == "" {
		http.Error(w, "missing fixture", http.StatusBadRequest)
		return
	}
	if err := a.streamer.Apply(r.Context(), m); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Serve listens on addr until the server fails.
func (a *Api) Serve(addr string) error {
	log.Printf("Listening on %s...", addr)
	return http.ListenAndServe(addr, a)
}
