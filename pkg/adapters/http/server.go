package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/internal/logging"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/journey"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/observability"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/ports"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/session"
)

// SessionCookie carries the session identifier.
const SessionCookie = "prsdb_session"

// Definition describes a journey served under /journeys/{Name}.
type Definition struct {
	// Name is the route segment of the journey, e.g. "property-registration".
	Name string

	// FirstStep is the route segment a new journey starts at.
	FirstStep string

	// Build declares the journey graph against the request's answer store.
	Build func(state *journey.StateService) (*journey.Graph, error)

	// Confirmation, if set, renders GET /journeys/{Name}/confirmation.
	// It runs outside the graph because the journey state is gone by then.
	Confirmation func(r *http.Request) (*domain.View, error)
}

// Server serves journeys over HTTP.
type Server struct {
	manager      *session.Manager
	journeys     map[string]Definition
	renderer     ports.Renderer
	metrics      *observability.Metrics
	logger       *slog.Logger
	rateLimit    int
	rateWindow   time.Duration
	secureCookie bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger configures a custom logger for the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRenderer replaces the default JSON renderer.
func WithRenderer(renderer ports.Renderer) Option {
	return func(s *Server) {
		s.renderer = renderer
	}
}

// WithMetrics records request durations and serves /metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithRateLimit limits requests per client IP. A limit of 0 disables limiting.
func WithRateLimit(limit int, window time.Duration) Option {
	return func(s *Server) {
		s.rateLimit = limit
		s.rateWindow = window
	}
}

// WithSecureCookie marks the session cookie Secure.
func WithSecureCookie(secure bool) Option {
	return func(s *Server) {
		s.secureCookie = secure
	}
}

// NewServer creates a server for the given journeys.
func NewServer(manager *session.Manager, defs []Definition, opts ...Option) *Server {
	s := &Server{
		manager:  manager,
		journeys: make(map[string]Definition, len(defs)),
		renderer: JSONRenderer{},
		logger:   logging.NewNop(),
	}
	for _, d := range defs {
		s.journeys[d.Name] = d
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the HTTP handler.
func (s *Server) Handler(ctx context.Context) (http.Handler, error) {
	doc, err := LoadSpec(ctx)
	if err != nil {
		return nil, err
	}
	validator, err := newRequestValidator(doc)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.observe)
	}

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/journeys/{journeyName}", func(r chi.Router) {
		if s.rateLimit > 0 {
			r.Use(rateLimit(s.rateLimit, s.rateWindow))
		}
		r.Get("/confirmation", s.confirmation)

		r.Group(func(r chi.Router) {
			r.Use(validator.Middleware)
			r.Get("/", s.start)
			r.Get("/{stepName}", s.step)
			r.Post("/{stepName}", s.step)
		})
	})
	return r, nil
}

func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests. Please try again later.")
		}),
	)
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.ObserveRequest(r.Method, route, ww.Status(), time.Since(start))
	})
}

func (s *Server) definition(w http.ResponseWriter, r *http.Request) (Definition, bool) {
	name := chi.URLParam(r, "journeyName")
	def, ok := s.journeys[name]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("unknown journey %q", name))
	}
	return def, ok
}

// start handles GET /journeys/{journeyName}.
func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	def, ok := s.definition(w, r)
	if !ok {
		return
	}
	http.Redirect(w, r, r.URL.Path+"/"+def.FirstStep, http.StatusFound)
}

// confirmation handles GET /journeys/{journeyName}/confirmation.
func (s *Server) confirmation(w http.ResponseWriter, r *http.Request) {
	def, ok := s.definition(w, r)
	if !ok {
		return
	}
	if def.Confirmation == nil {
		writeError(w, http.StatusNotFound, "not_found", "journey has no confirmation page")
		return
	}
	view, err := def.Confirmation(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, http.StatusOK, view)
}

// step handles GET and POST /journeys/{journeyName}/{stepName}.
func (s *Server) step(w http.ResponseWriter, r *http.Request) {
	params, err := bindStepParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	def, ok := s.definition(w, r)
	if !ok {
		return
	}

	var data domain.PageData
	if r.Method == http.MethodPost {
		if data, err = readPageData(r); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	}

	sessionID := s.sessionID(w, r)
	logger := s.logger.With("session_id", sessionID, "journey", def.Name, "step", params.StepName)

	err = s.manager.WithLock(r.Context(), sessionID, func(ctx context.Context) error {
		state := journey.NewStateService(s.manager.Answers(sessionID), params.journeyID(), journey.WithStateLogger(logger))

		graph, err := def.Build(state)
		if err != nil {
			return err
		}
		orchestrator, ok := graph.Orchestrator(params.StepName)
		if !ok {
			writeError(w, http.StatusNotFound, "not_found", fmt.Sprintf("unknown step %q", params.StepName))
			return nil
		}

		if _, err := state.Metadata(ctx); err != nil {
			if !errors.Is(err, domain.ErrJourneyNotFound) {
				return err
			}
			return s.reinitialise(ctx, w, r, state, def, sessionID, params.StepName)
		}

		var res *journey.Result
		if r.Method == http.MethodPost {
			res, err = orchestrator.Post(ctx, data)
		} else {
			res, err = orchestrator.Get(ctx)
		}
		if err != nil {
			return err
		}
		s.respond(w, r, state.JourneyID(), res)
		return nil
	})
	if err != nil {
		logger.Error("Journey step failed", "error", err)
		s.fail(w, r, err)
	}
}

// reinitialise creates the journey for this session and redirects to the requested step under it.
func (s *Server) reinitialise(ctx context.Context, w http.ResponseWriter, r *http.Request, state *journey.StateService, def Definition, sessionID, step string) error {
	id := journey.GenerateJourneyID(def.Name + " session " + sessionID)
	if err := state.InitializeJourneyWithID(ctx, id, nil); err != nil {
		return err
	}
	s.logger.Debug("Journey re-initialised", "journey", def.Name, "journey_id", id, "requested_id", state.JourneyID())
	http.Redirect(w, r, journey.URLWithJourneyState(step, id), http.StatusFound)
	return nil
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, journeyID string, res *journey.Result) {
	if res.IsRedirect() {
		status := http.StatusFound
		if res.State == journey.SubmittedValid {
			status = http.StatusSeeOther
		}
		http.Redirect(w, r, res.Redirect.Location(journeyID), status)
		return
	}

	status := http.StatusOK
	if res.State == journey.SubmittedInvalid {
		status = http.StatusUnprocessableEntity
	}
	s.render(w, status, res.View)
}

func (s *Server) render(w http.ResponseWriter, status int, view *domain.View) {
	if err := s.renderer.Render(w, status, view); err != nil {
		s.logger.Error("Render failed", "error", err)
	}
}

// fail renders the generic error page. Details stay in the logs.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	message := "Something went wrong"
	switch {
	case domain.IsConfigurationError(err):
		message = "The journey is misconfigured"
	case errors.Is(err, domain.ErrStepStateMissing):
		message = "Your answers could not be read"
	}
	s.render(w, http.StatusInternalServerError, domain.ErrorView(message))
}

// sessionID returns the session of the request, minting one when the cookie is absent or malformed.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// readPageData reads a form or JSON submission.
func readPageData(r *http.Request) (domain.PageData, error) {
	data := domain.PageData{}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		if r.ContentLength == 0 {
			return data, nil
		}
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		return data, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form body: %w", err)
	}
	for key, values := range r.PostForm {
		switch len(values) {
		case 0:
		case 1:
			data[key] = values[0]
		default:
			list := make([]any, len(values))
			for i, v := range values {
				list[i] = v
			}
			data[key] = list
		}
	}
	return data, nil
}
