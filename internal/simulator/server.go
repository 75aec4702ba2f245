// internal/simulator/server.go
//
// Local stand-in for the megaverse challenge API.
// Responsibilities:
//   - Router + middleware (JSON, timeouts, panic recovery, request IDs).
//   - Write endpoints: POST|DELETE /api/{polyanets,soloons,comeths}.
//   - Read endpoints: GET /api/map/{candidateId}/goal, GET /api/map/{candidateId}.
//   - Fault injection so clients can be exercised against failures:
//       FailFirst       first N writes get 503 and are NOT applied;
//       FailAfterApply  first N writes ARE applied, then answer 500;
//       RateLimit       token bucket answering 429 when empty.
//
// Notes:
//   - Body validation mirrors the real service: candidateId required,
//     row/column inside the goal grid, valid color/direction.

package simulator

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/robalobadob/megaverse/internal/megaverse"
	"github.com/robalobadob/megaverse/internal/store"
)

// Options configures fault injection.
type Options struct {
	FailFirst      int     // writes answered 503 without applying
	FailAfterApply int     // writes applied, then answered 500
	RateLimit      float64 // writes per second; 0 disables
	Burst          int
	Logger         zerolog.Logger
}

// Server bundles router, grid store and goal map.
type Server struct {
	r     *chi.Mux
	store store.Store
	goal  megaverse.GoalMap
	rows  int
	cols  int
	log   zerolog.Logger

	limiter *rate.Limiter

	mu             sync.Mutex // guards the counters below
	failFirst      int
	failAfterApply int
	writes         int
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, goal megaverse.GoalMap, opts Options) *Server {
	s := &Server{
		r:              chi.NewRouter(),
		store:          st,
		goal:           goal,
		log:            opts.Logger,
		failFirst:      opts.FailFirst,
		failAfterApply: opts.FailAfterApply,
	}
	s.rows, s.cols = goal.Size()
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(10 * time.Second))
	s.r.Use(jsonContentType)
	s.r.Use(s.accessLog)

	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.r.Route("/api", func(r chi.Router) {
		r.Post("/{resource}", s.handleWrite)
		r.Delete("/{resource}", s.handleWrite)
		r.Get("/map/{candidateId}/goal", s.handleGoal)
		r.Get("/map/{candidateId}", s.handleMap)
	})

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})
	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	return srv.ListenAndServe()
}

// Handler exposes the router (used by tests via httptest).
func (s *Server) Handler() http.Handler { return s.r }

// Writes returns how many write requests reached the handler.
func (s *Server) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// ----------------------------- middleware ----------------------------------

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("request_id", chimw.GetReqID(r.Context())).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

// ------------------------------ writes -------------------------------------

// fault decides how the current write is answered before/after applying it.
type fault int

const (
	faultNone fault = iota
	faultBefore
	faultAfter
)

func (s *Server) nextFault() fault {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	switch {
	case s.failFirst > 0:
		s.failFirst--
		return faultBefore
	case s.failAfterApply > 0:
		s.failAfterApply--
		return faultAfter
	}
	return faultNone
}

// handleWrite serves POST (create) and DELETE (remove) for every resource.
func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	kind, ok := megaverse.KindFromResource(chi.URLParam(r, "resource"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if s.limiter != nil && !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "too_many_requests")
		return
	}

	var req megaverse.SubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	obj := megaverse.Object{
		Kind:      kind,
		Placement: megaverse.Placement{Row: req.Row, Column: req.Column},
		Color:     req.Color,
		Direction: req.Direction,
	}
	if err := s.validate(req, obj, r.Method); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f := s.nextFault()
	if f == faultBefore {
		writeError(w, http.StatusServiceUnavailable, "unavailable")
		return
	}

	var err error
	if r.Method == http.MethodDelete {
		err = s.store.Delete(r.Context(), req.CandidateID, obj.Placement)
		if errors.Is(err, store.ErrEmptyCell) {
			err = nil
		}
	} else {
		err = s.store.Put(r.Context(), req.CandidateID, obj)
	}
	if err != nil {
		s.log.Error().Err(err).Str("object", obj.String()).Msg("store write")
		writeError(w, http.StatusInternalServerError, "store_failed")
		return
	}

	if f == faultAfter {
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	_, _ = w.Write([]byte(`{}`))
}

func (s *Server) validate(req megaverse.SubmissionRequest, obj megaverse.Object, method string) error {
	if req.CandidateID == "" {
		return errors.New("candidateId is required")
	}
	if obj.Placement.Row >= s.rows || obj.Placement.Column >= s.cols {
		return errors.New("row/column out of bounds")
	}
	if method == http.MethodDelete {
		// Deletes only identify the cell.
		obj = megaverse.Object{Kind: megaverse.KindPolyanet, Placement: obj.Placement}
	}
	return obj.Validate()
}

// ------------------------------- reads -------------------------------------

func (s *Server) handleGoal(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(s.goal)
}

// handleMap renders the candidate's current grid in goal-map form.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	objs, err := s.store.Objects(r.Context(), chi.URLParam(r, "candidateId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_failed")
		return
	}
	grid := make([][]string, s.rows)
	for i := range grid {
		grid[i] = make([]string, s.cols)
		for j := range grid[i] {
			grid[i][j] = megaverse.Space
		}
	}
	for _, o := range objs {
		// A persisted grid may outlive a smaller goal map.
		if o.Placement.Row >= s.rows || o.Placement.Column >= s.cols {
			s.log.Warn().Str("object", o.String()).Msg("stored cell outside goal map")
			continue
		}
		grid[o.Placement.Row][o.Placement.Column] = megaverse.Cell(o)
	}
	_ = json.NewEncoder(w).Encode(megaverse.GoalMap{Goal: grid})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
