package network

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/SebastianChristoph/industrygame-sub000/internal/content"
	"github.com/SebastianChristoph/industrygame-sub000/internal/engine"
	"github.com/SebastianChristoph/industrygame-sub000/internal/platform/logger"
)

// API is the REST bridge to the engine. It accepts the same actions as
// the websocket and serves read-only views of the state.
type API struct {
	engine     *engine.Engine
	dispatcher *Dispatcher
	recaps     RecapSource
	slot       string
	logger     *logger.Logger
}

// NewAPI creates the REST handlers. recaps may be nil when no database is
// configured; /api/recap then answers 503.
func NewAPI(e *engine.Engine, d *Dispatcher, recaps RecapSource, slot string, log *logger.Logger) *API {
	return &API{engine: e, dispatcher: d, recaps: recaps, slot: slot, logger: log}
}

// RegisterRoutes sets up the REST routes.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/actions", a.HandleAction)
	mux.HandleFunc("/api/state", a.HandleState)
	mux.HandleFunc("/api/history", a.HandleHistory)
	mux.HandleFunc("/api/events", a.HandleEvents)
	mux.HandleFunc("/api/recap", a.HandleRecap)
}

// HandleAction applies one action.
// POST /api/actions
func (a *API) HandleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageSize))
	if err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res := a.dispatcher.Handle(body)
	if err := res.Err(); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusFor(err))
		json.NewEncoder(w).Encode(res)
		return
	}
	jsonSuccess(w, res)
}

// HandleState returns the current snapshot.
// GET /api/state
func (a *API) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonSuccess(w, map[string]interface{}{
		"state":       a.engine.Snapshot(),
		"generatedAt": time.Now().UTC().Format(time.RFC3339),
	})
}

// statusFor maps action errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidAction),
		errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, engine.ErrInvalidInputIndex),
		errors.Is(err, engine.ErrInvalidSource),
		errors.Is(err, engine.ErrInvalidTarget):
		return http.StatusBadRequest
	case errors.Is(err, content.ErrUnknownID), errors.Is(err, engine.ErrLineNotFound):
		return http.StatusNotFound
	default:
		return http.StatusConflict
	}
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// jsonSuccess sends a success response.
func jsonSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}
