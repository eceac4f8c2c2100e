package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/hamyon/hamyon/internal/charts"
	"github.com/hamyon/hamyon/internal/config"
	"github.com/hamyon/hamyon/internal/database"
	"github.com/hamyon/hamyon/internal/file"
	"github.com/hamyon/hamyon/internal/health"
	"github.com/hamyon/hamyon/internal/llm"
	"github.com/hamyon/hamyon/internal/logger"
	"github.com/hamyon/hamyon/internal/metrics"
	"github.com/hamyon/hamyon/internal/speech"
	"github.com/hamyon/hamyon/internal/telegram"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	if err := logger.InitLogger(cfg.LogLevel, cfg.LogDir); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Info("Aqlli Hamyon is starting", logger.Fields{
		"log_level":  cfg.LogLevel,
		"timezone":   cfg.Timezone,
		"has_llm":    cfg.HasLLMConfig(),
		"has_speech": cfg.HasSpeechConfig(),
		"workers":    cfg.WorkerCount,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		logger.Error("Failed to connect to database", logger.Fields{
			"error": err.Error(),
		})
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ai := llm.NewClient(ctx, cfg)
	defer ai.Close()

	collector := metrics.NewMetricsCollector()

	bot, err := telegram.NewBot(cfg, telegram.Dependencies{
		Store:      db,
		Analyzer:   ai,
		Recognizer: newRecognizer(ctx, cfg, ai),
		Charts:     charts.NewGenerator(),
		Files:      file.NewManager(),
		Metrics:    collector,
	})
	if err != nil {
		logger.Error("Failed to create Telegram bot", logger.Fields{
			"error": err.Error(),
		})
		log.Fatalf("Failed to create Telegram bot: %v", err)
	}

	server := health.NewServer(cfg.Port, collector.Registry(), db, bot.Stats)
	server.Start()

	logger.InfoMsg("💰 Ready to track expenses!")

	if err := bot.Start(ctx); err != nil {
		logger.Error("Bot error", logger.Fields{
			"error": err.Error(),
		})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Health server shutdown failed", logger.Fields{
			"error": err.Error(),
		})
	}
	if err := bot.Stop(); err != nil {
		logger.Warn("Bot shutdown incomplete", logger.Fields{
			"error": err.Error(),
		})
	}
}

// newRecognizer chains Google Speech-to-Text ahead of Gemini transcription,
// using whichever is configured. It returns nil when neither is.
func newRecognizer(ctx context.Context, cfg *config.Config, ai *llm.Client) speech.Recognizer {
	var chain speech.Chain

	if cfg.HasSpeechConfig() {
		google, err := speech.NewGoogleRecognizer(ctx, cfg.SpeechAPIKey, cfg.SpeechLanguage)
		if err != nil {
			logger.Warn("Google speech recognizer unavailable", logger.Fields{
				"error": err.Error(),
			})
		} else {
			chain = append(chain, google)
		}
	}

	if ai.Enabled() {
		chain = append(chain, speech.NewGeminiRecognizer(ai))
	}

	if len(chain) == 0 {
		logger.WarnMsg("No speech recognizer configured, voice messages are disabled")
		return nil
	}
	return chain
}
