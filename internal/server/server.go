// Package server exposes quiz generation, result analysis and the live
// quiz session over HTTP.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/abhisek/docquiz/internal/analysis"
	"github.com/abhisek/docquiz/internal/blob"
	"github.com/abhisek/docquiz/internal/events"
	"github.com/abhisek/docquiz/internal/generation"
	"github.com/abhisek/docquiz/internal/scoring"
	"github.com/abhisek/docquiz/internal/session"
)

// Options tunes the HTTP surface.
type Options struct {
	GinMode        string
	MaxUploadBytes int64
	RateLimit      int
	RateInterval   time.Duration

	// AllowedOrigins controls CORS and WebSocket origin checks. Empty
	// permits every origin.
	AllowedOrigins []string
}

// Deps are the collaborators a Server drives.
type Deps struct {
	Generator   generation.Generator
	Pipeline    *analysis.Pipeline
	Persistence *session.Persistence

	// Blobs archives uploaded documents when set.
	Blobs blob.Store

	// Publisher receives lifecycle events; nil disables them.
	Publisher events.Publisher

	// Scheduler drives session countdowns; nil uses the wall clock.
	Scheduler session.Scheduler

	Log zerolog.Logger
}

// Server owns the single live quiz session and its HTTP handlers.
type Server struct {
	deps Deps
	opts Options
	log  zerolog.Logger
	hub  *hub

	// lifecycle is held across every replacement of the live session so
	// that at most one controller is ever armed.
	lifecycle sync.Mutex

	mu   sync.Mutex
	ctrl *session.Controller

	limiter *RateLimiter
}

// New returns a Server. Call Router to obtain the handler.
func New(deps Deps, opts Options) *Server {
	if deps.Scheduler == nil {
		deps.Scheduler = session.SystemScheduler{}
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Nop{}
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	if opts.RateInterval <= 0 {
		opts.RateInterval = time.Minute
	}
	setupValidator()
	return &Server{
		deps: deps,
		opts: opts,
		log:  deps.Log.With().Str("component", "server").Logger(),
		hub:  newHub(),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	if s.opts.GinMode != "" {
		gin.SetMode(s.opts.GinMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(requestLogger(s.log))

	// CORS
	corsCfg := cors.DefaultConfig()
	if len(s.opts.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = s.opts.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Request-ID"}
	corsCfg.ExposeHeaders = []string{"Content-Length", "X-Request-ID"}
	corsCfg.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsCfg))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if s.limiter != nil {
		s.limiter.Stop()
	}
	s.limiter = NewRateLimiter(s.opts.RateLimit, s.opts.RateInterval)
	limiter := s.limiter
	upgrader := buildUpgrader(s.opts.AllowedOrigins)

	api := r.Group("/api")
	{
		api.POST("/generate-quiz", limiter.Middleware(), s.generateQuiz)
		api.POST("/analyze-results", limiter.Middleware(), s.analyzeResults)

		sess := api.Group("/session")
		sess.POST("", s.startSession)
		sess.GET("", s.getSession)
		sess.DELETE("", s.deleteSession)
		sess.POST("/answer", s.selectAnswer)
		sess.POST("/next", s.goNext)
		sess.POST("/previous", s.goPrevious)
		sess.POST("/submit", s.submitSession)
		sess.POST("/analysis", limiter.Middleware(), s.analyzeSession)
		sess.GET("/ws", s.sessionFeed(upgrader))
	}

	return r
}

// Close stops the live session's countdown. Its stored state is kept so
// a restart can resume it.
func (s *Server) Close() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if prev := s.swap(nil); prev != nil {
		prev.Close()
	}
	s.hub.close()
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// Resume restores a stored session, if any, so its countdown continues
// across restarts. A missing session is not an error.
func (s *Server) Resume(ctx context.Context) error {
	if s.deps.Persistence == nil {
		return nil
	}
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	ctrl, err := session.Resume(ctx, s.deps.Persistence, s.sessionOptions()...)
	if err != nil {
		return err
	}
	s.install(ctrl)
	return nil
}

// current returns the live controller or nil.
func (s *Server) current() *session.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl
}

// swap installs ctrl as the live session and returns the previous one.
func (s *Server) swap(ctrl *session.Controller) *session.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.ctrl
	s.ctrl = ctrl
	return prev
}

// install makes ctrl the live session and stops any controller it
// replaces. Callers hold lifecycle.
func (s *Server) install(ctrl *session.Controller) {
	if prev := s.swap(ctrl); prev != nil && prev != ctrl {
		prev.Close()
	}
}

// teardown ends the live session and clears stored session data. Callers
// hold lifecycle.
func (s *Server) teardown(ctx context.Context) error {
	if prev := s.swap(nil); prev != nil {
		return prev.Abandon(ctx)
	}
	if s.deps.Persistence != nil {
		return s.deps.Persistence.Clear(ctx)
	}
	return nil
}

func (s *Server) sessionOptions() []session.Option {
	opts := []session.Option{
		session.WithScheduler(s.deps.Scheduler),
		session.WithLogger(s.deps.Log),
		session.OnChange(s.hub.publish),
		session.OnSubmit(s.onSubmit),
	}
	if s.deps.Persistence != nil {
		opts = append(opts, session.WithPersistence(s.deps.Persistence))
	}
	return opts
}

func (s *Server) onSubmit(ev session.SubmitEvent) {
	data := gin.H{"reason": ev.Reason}
	if sum, err := scoring.Score(ev.State.QuestionSet, ev.State.Answers); err == nil {
		data["summary"] = sum
	}
	events.Notify(context.Background(), s.deps.Publisher, s.log, events.New(events.TypeQuizSubmitted, data))
}
