// Package httpapi est un serveur de répétition qui imite l'API "schalter" du
// service de réservation: mêmes chemins, même enveloppe JSON, même protocole
// 422-avant-ouverture / 201-après. Il permet de répéter un snipe en local
// sans toucher au vrai service. Tout est en mémoire.
package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/ASVZ-Sniper/internal/ports"
)

const defaultRequestTimeout = 30 * time.Second

type Options struct {
	// OpensIn décale l'ouverture des inscriptions de chaque leçon par
	// rapport à sa première consultation.
	OpensIn time.Duration
	// Capacity est le nombre de places par leçon.
	Capacity int
	// RequireAuth fait rejeter en 401 toute inscription sans bearer token.
	RequireAuth bool
}

func DefaultOptions() Options {
	return Options{
		OpensIn:  30 * time.Second,
		Capacity: 20,
	}
}

type Server struct {
	logger zerolog.Logger
	opts   Options
	// bus est optionnel; les inscriptions y sont publiées pour le flux SSE.
	bus ports.EventBus

	mu      sync.Mutex
	lessons map[string]*mockLesson

	now func() time.Time
}

type mockLesson struct {
	id       string
	opensAt  time.Time
	enrolled int
	capacity int
}

func NewServer(logger zerolog.Logger, opts Options, bus ports.EventBus) *Server {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultOptions().Capacity
	}
	return &Server{
		logger:  logger,
		opts:    opts,
		bus:     bus,
		lessons: make(map[string]*mockLesson),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultRequestTimeout))
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLogFn))

	r.Route("/tn-api/api", func(r chi.Router) {
		r.Get("/Lessons/{lessonID}", s.handleLesson)
		r.Post("/Lessons/{lessonID}/Enrollment", s.handleEnroll)
	})
	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Get("/events", s.handleEvents)

	return r
}

func accessLogFn(r *http.Request, status, size int, duration time.Duration) {
	logger := hlog.FromRequest(r)
	logger.Info().
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("http")
}

// lesson renvoie la leçon, en la créant à la première consultation avec une
// ouverture à now+OpensIn.
func (s *Server) lesson(id string) *mockLesson {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.lessons[id]; ok {
		return l
	}
	l := &mockLesson{
		id:       id,
		opensAt:  s.now().Add(s.opts.OpensIn),
		capacity: s.opts.Capacity,
	}
	s.lessons[id] = l
	return l
}
