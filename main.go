package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/Little6thingys/lyric-mind/internal/api"
	apimiddleware "github.com/Little6thingys/lyric-mind/internal/api/middleware"
	"github.com/Little6thingys/lyric-mind/internal/config"
	"github.com/Little6thingys/lyric-mind/internal/database"
	"github.com/Little6thingys/lyric-mind/internal/editor"
	"github.com/Little6thingys/lyric-mind/internal/llm"
	"github.com/Little6thingys/lyric-mind/internal/metrics"
	"github.com/Little6thingys/lyric-mind/internal/observability"
	"github.com/Little6thingys/lyric-mind/internal/playback"
	"github.com/Little6thingys/lyric-mind/internal/playback/midiout"
	"github.com/Little6thingys/lyric-mind/internal/render"
	"github.com/Little6thingys/lyric-mind/internal/store"
	"github.com/Little6thingys/lyric-mind/internal/suggest"
)

const (
	sentryFlushTimeout   = 2 * time.Second
	sessionSweepInterval = time.Minute
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

// GetVersion returns the current release version
func GetVersion() string {
	return releaseVersion
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	ctx := context.Background()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			Release:          "lyric-mind@" + releaseVersion,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
			Debug:            !cfg.IsProduction(),
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			log.Printf("Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s, release: %s)", cfg.Environment, releaseVersion)
			defer sentry.Flush(sentryFlushTimeout)
		}
	} else {
		log.Println("⚠️  Sentry not configured (SENTRY_DSN not set)")
	}

	observability.InitializeLangfuse(ctx, cfg)

	recorder := metrics.Multi{
		metrics.NewSentryMetrics(),
		metrics.NewClient(ctx, cfg.Environment, cfg.MetricsNamespace),
	}

	db, library, err := openLibrary(cfg)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to open score library:", err)
	}

	suggester, err := buildSuggester(ctx, cfg, recorder)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to configure suggestions:", err)
	}
	log.Printf("🎼 Suggestions served by %s", suggester.Name())

	player, closePlayer := openPlayer(cfg)
	defer closePlayer()

	sessions := editor.NewStore(editor.Deps{
		Pipeline:  render.NewPipeline(render.NewStaffEngine()),
		Suggester: suggester,
		Player:    player,
	}, editor.Options{
		Capacity:    cfg.MeasureCapacity,
		ClickWindow: cfg.ClickWindow,
		IdleTTL:     cfg.SessionIdleTTL,
	})
	stopSweep := sessions.StartSweeper(sessionSweepInterval)
	defer stopSweep()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.SetupRouter(api.Deps{
		DB:             db,
		Sessions:       sessions,
		Library:        library,
		Suggester:      suggester,
		SuggestTimeout: cfg.SuggestTimeout,
		Cookies:        apimiddleware.NewCookieStore(cfg.SessionSecret, cfg.IsProduction()),
		Metrics:        recorder,
		CORSOrigin:     cfg.CORSOrigin,
		Version:        GetVersion(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🚀 Starting server on port %s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to start server:", err)
	}
}

// openLibrary connects Postgres when DATABASE_URL is set and falls back to
// an in-memory library otherwise.
func openLibrary(cfg *config.Config) (*gorm.DB, store.ScoreStore, error) {
	if cfg.DatabaseURL == "" {
		log.Println("⚠️  DATABASE_URL not set, saved scores are kept in memory")
		return nil, store.NewMemoryStore(), nil
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, nil, err
	}
	return db, store.NewGormStore(db), nil
}

// openPlayer opens MIDI_OUTPUT for server-side playback. Without one, or
// when it cannot be opened, sessions only return note events.
func openPlayer(cfg *config.Config) (*playback.Player, func()) {
	if cfg.MIDIOutput == "" {
		return nil, func() {}
	}
	synth, err := midiout.Open(cfg.MIDIOutput, uint8(cfg.MIDIChannel))
	if err != nil {
		log.Printf("⚠️  MIDI output unavailable, server playback disabled: %v", err)
		return nil, func() {}
	}
	log.Printf("🎹 Server playback on %s", synth.Name())
	return playback.NewPlayer(playback.NewClockTransport(), synth), synth.Close
}

func buildSuggester(ctx context.Context, cfg *config.Config, recorder metrics.Recorder) (suggest.Suggester, error) {
	var s suggest.Suggester
	switch cfg.SuggestMode {
	case config.SuggestModeStub, "":
		s = suggest.NewStubSuggester()

	case config.SuggestModeRemote:
		if cfg.SuggestEndpoint == "" {
			return nil, fmt.Errorf("SUGGEST_ENDPOINT is required when SUGGEST_MODE=remote")
		}
		s = suggest.NewClient(cfg.SuggestEndpoint, &http.Client{Timeout: cfg.SuggestTimeout})

	case config.SuggestModeLLM:
		factory := llm.NewProviderFactory(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.GeminiAPIKey)
		provider, err := factory.GetProvider(ctx, cfg.LLMModel, cfg.LLMProvider)
		if err != nil {
			return nil, err
		}
		s = suggest.NewPlanSuggester(provider, cfg.LLMModel, cfg.LLMStructured).WithMetrics(recorder)

	default:
		return nil, fmt.Errorf("unknown SUGGEST_MODE %q (allowed: stub, llm, remote)", cfg.SuggestMode)
	}
	return suggest.Instrument(s, recorder), nil
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"x-api-key":     true,
	}

	for k, v := range headers {
		if sensitiveKeys[k] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
