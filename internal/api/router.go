package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"gorm.io/gorm"

	"github.com/Little6thingys/lyric-mind/internal/api/handlers"
	apimiddleware "github.com/Little6thingys/lyric-mind/internal/api/middleware"
	"github.com/Little6thingys/lyric-mind/internal/editor"
	"github.com/Little6thingys/lyric-mind/internal/metrics"
	"github.com/Little6thingys/lyric-mind/internal/store"
	"github.com/Little6thingys/lyric-mind/internal/suggest"
)

// Deps are the services the router exposes.
type Deps struct {
	DB             *gorm.DB // nil when the library lives in memory
	Sessions       *editor.Store
	Library        store.ScoreStore
	Suggester      suggest.Suggester
	SuggestTimeout time.Duration
	Cookies        sessions.Store
	Metrics        metrics.Recorder
	CORSOrigin     string
	Version        string
}

func SetupRouter(deps Deps) *gin.Engine {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}

	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())
	router.Use(apimiddleware.SentryMiddleware())
	router.Use(apimiddleware.RequestTracking(deps.Metrics))
	router.Use(apimiddleware.CORS(deps.CORSOrigin))

	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Suggester.Name())
	router.GET("/health", healthHandler.HealthCheck)

	metricsHandler := handlers.NewMetricsHandler(deps.Version, deps.Sessions, deps.Suggester.Name())
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	suggestHandler := handlers.NewSuggestHandler(deps.Suggester, deps.SuggestTimeout)
	router.POST("/api/llama3", suggestHandler.Suggest)

	scoreHandler := handlers.NewScoreHandler(deps.Library)
	scores := router.Group("/api/scores")
	{
		scores.GET("", scoreHandler.List)
		scores.GET("/:id", scoreHandler.Get)
		scores.DELETE("/:id", scoreHandler.Delete)
	}

	sessionHandler := handlers.NewSessionHandler(deps.Sessions, deps.SuggestTimeout)
	withCookie := apimiddleware.SessionCookie(deps.Cookies)

	router.GET("/api/session", withCookie, sessionHandler.Current)
	router.POST("/api/sessions", withCookie, sessionHandler.Create)

	session := router.Group("/api/sessions/:id")
	session.Use(withCookie, sessionHandler.Load())
	{
		session.GET("", sessionHandler.Get)
		session.DELETE("", sessionHandler.Delete)
		session.POST("/regenerate", sessionHandler.Regenerate)

		// Editing
		session.POST("/pointer", sessionHandler.Pointer)
		session.PUT("/toolbar", sessionHandler.SetToolbar)
		session.POST("/notes", sessionHandler.InsertNote)
		session.POST("/toggle", sessionHandler.Toggle)
		session.POST("/clear-measures", sessionHandler.ClearMeasures)
		session.POST("/clear-highlights", sessionHandler.ClearHighlights)

		// Files and sound
		session.POST("/import", sessionHandler.Import)
		session.GET("/export", sessionHandler.Export)
		session.GET("/midi", sessionHandler.MIDI)
		session.GET("/playback", sessionHandler.Playback)

		// Suggestions
		session.POST("/chat", sessionHandler.Chat)
		session.POST("/options/:index/select", sessionHandler.SelectOption)
		session.GET("/compare", sessionHandler.Compare)

		// Library
		session.POST("/save", scoreHandler.Save)
		session.POST("/open/:scoreID", scoreHandler.Open)
	}

	return router
}
