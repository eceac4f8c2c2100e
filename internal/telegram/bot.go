package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/hamyon/hamyon/internal/cache"
	"github.com/hamyon/hamyon/internal/charts"
	"github.com/hamyon/hamyon/internal/config"
	"github.com/hamyon/hamyon/internal/database"
	"github.com/hamyon/hamyon/internal/file"
	"github.com/hamyon/hamyon/internal/llm"
	"github.com/hamyon/hamyon/internal/logger"
	"github.com/hamyon/hamyon/internal/metrics"
	"github.com/hamyon/hamyon/internal/parser"
	"github.com/hamyon/hamyon/internal/speech"
)

const (
	sessionTTL        = 30 * time.Minute
	callbackDedupTTL  = 30 * time.Second
	chatLimiterTTL    = 10 * time.Minute
	globalRateLimit   = 30 // messages per second across all chats
	chatRateLimit     = 5
	chatRateBurst     = 20
	downloadTimeout   = 30 * time.Second
	maxDownloadBytes  = 20 << 20
	cacheCleanupEvery = 5 * time.Minute
)

// botAPI is the part of tgbotapi.BotAPI the bot talks to.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Store is the persistence the bot needs. *database.DB implements it.
type Store interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*database.User, error)
	RegisterUser(ctx context.Context, telegramID int64, username, fullName string) (*database.User, error)
	SetBudgetLimit(ctx context.Context, userID int, limit float64) error
	AddPartner(ctx context.Context, userID, partnerID int) (*database.User, error)
	CreateExpense(ctx context.Context, in database.NewExpense) (*database.ExpenseResult, error)
	DeleteExpense(ctx context.Context, expenseID, userID int) (bool, error)
	RecentExpenses(ctx context.Context, userID, limit int) ([]database.ExpenseView, float64, error)
	ExportExpenses(ctx context.Context, userID int) ([]database.ExpenseView, error)
	MonthlyStatistics(ctx context.Context, userID int, month time.Time) (*database.Statistics, error)
	AddNotifications(ctx context.Context, userIDs []int, message string) error
	RecentNotifications(ctx context.Context, userID, limit int) ([]database.Notification, error)
	MarkNotificationsRead(ctx context.Context, userID int, ids []int) error
}

// ExpenseAnalyzer extracts an expense from free text. llm.Client implements it.
type ExpenseAnalyzer interface {
	AnalyzeExpense(ctx context.Context, text string) (parser.Expense, llm.Source)
}

// Dependencies are the collaborators handed to NewBot. Only Store is required.
type Dependencies struct {
	Store      Store
	Analyzer   ExpenseAnalyzer
	Recognizer speech.Recognizer
	Charts     *charts.Generator
	Files      *file.Manager
	Metrics    *metrics.MetricsCollector
}

type Bot struct {
	api          botAPI
	token        string
	fileEndpoint string
	httpClient   *http.Client
	config       *config.Config
	loc          *time.Location
	now          func() time.Time

	store      Store
	analyzer   ExpenseAnalyzer
	recognizer speech.Recognizer
	charts     *charts.Generator
	files      *file.Manager
	metrics    *metrics.MetricsCollector

	users    *cache.Cache[int64, *database.User] // telegram ID -> registered user
	sessions *cache.Cache[int64, *Session]       // telegram ID -> conversation state

	// Rate limiting
	globalLimiter *rate.Limiter
	chatLimiters  *cache.Cache[int64, *rate.Limiter]

	// Callback deduplication
	processedCallbacks *cache.Cache[string, struct{}]

	workerPool *WorkerPool
}

func NewBot(cfg *config.Config, deps Dependencies) (*Bot, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("failed to create bot: %w", database.ErrNotConfigured)
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	logger.Info("Bot authorized", logger.Fields{
		"username": api.Self.UserName,
	})

	return newBot(api, api.Token, cfg, deps), nil
}

func newBot(api botAPI, token string, cfg *config.Config, deps Dependencies) *Bot {
	b := &Bot{
		api:          api,
		token:        token,
		fileEndpoint: tgbotapi.FileEndpoint,
		httpClient:   &http.Client{Timeout: downloadTimeout},
		config:       cfg,
		loc:          cfg.Location(),
		now:          time.Now,

		store:      deps.Store,
		analyzer:   deps.Analyzer,
		recognizer: deps.Recognizer,
		charts:     deps.Charts,
		files:      deps.Files,
		metrics:    deps.Metrics,

		users:    cache.NewWithConfig[int64, *database.User](cache.DefaultMaxSize, sessionTTL, cacheCleanupEvery),
		sessions: cache.NewWithConfig[int64, *Session](10*cache.DefaultMaxSize, sessionTTL, cacheCleanupEvery),

		globalLimiter: rate.NewLimiter(rate.Limit(globalRateLimit), globalRateLimit),
		chatLimiters:  cache.NewWithConfig[int64, *rate.Limiter](cache.DefaultMaxSize, chatLimiterTTL, cacheCleanupEvery),

		processedCallbacks: cache.NewWithConfig[string, struct{}](cache.DefaultMaxSize, callbackDedupTTL, time.Minute),
	}

	if b.analyzer == nil {
		b.analyzer = regexAnalyzer{}
	}
	if b.charts == nil {
		b.charts = charts.NewGenerator()
	}
	if b.files == nil {
		b.files = file.NewManager()
	}

	b.workerPool = NewWorkerPool(b.handleUpdate, WorkerPoolConfig{
		Workers:          cfg.WorkerCount,
		QueueSize:        cfg.WorkerQueueSize,
		MaxConcurrentOps: cfg.MaxConcurrentOps,
		JobTimeout:       DefaultWorkerPoolConfig().JobTimeout,
	}, b.metrics)

	return b
}

// Start runs long polling until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	logger.Info("Bot starting", logger.Fields{
		"global_rate_limit": fmt.Sprintf("%d msg/sec", globalRateLimit),
		"chat_rate_limit":   fmt.Sprintf("%d msg/sec", chatRateLimit),
		"workers":           b.config.WorkerCount,
	})

	if err := b.workerPool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(update)
		}
	}
}

func (b *Bot) dispatch(update tgbotapi.Update) {
	if update.Message == nil && update.CallbackQuery == nil {
		logger.Debug("Update has no message or callback, skipping", logger.Fields{
			"update_id": update.UpdateID,
		})
		return
	}

	if err := b.workerPool.Submit(update); err != nil {
		logger.Warn("Dropped update", logger.Fields{
			"error":     err.Error(),
			"update_id": update.UpdateID,
			"user_id":   updateUserID(update),
		})
		b.metrics.RecordUpdate(updateKind(update), metrics.StatusDropped, 0)
	}
}

// Stop drains the worker pool and releases background goroutines.
func (b *Bot) Stop() error {
	logger.InfoMsg("Stopping bot...")

	var err error
	if b.workerPool != nil {
		if err = b.workerPool.Stop(); err != nil {
			logger.Error("Error stopping worker pool", logger.Fields{
				"error": err.Error(),
			})
		}
	}

	b.users.Close()
	b.sessions.Close()
	b.chatLimiters.Close()
	b.processedCallbacks.Close()

	logger.InfoMsg("Bot stopped")
	return err
}

// Stats reports worker pool state for the health endpoint.
func (b *Bot) Stats() map[string]interface{} {
	if b.workerPool == nil {
		return map[string]interface{}{
			"worker_pool": "not initialized",
		}
	}
	stats := b.workerPool.GetStats()
	stats["sessions"] = b.sessions.Size()
	stats["cached_users"] = b.users.Size()
	stats["caches"] = map[string]interface{}{
		"users":         cacheStats(b.users.GetStats()),
		"sessions":      cacheStats(b.sessions.GetStats()),
		"chat_limiters": cacheStats(b.chatLimiters.GetStats()),
	}
	return stats
}

func cacheStats(s cache.Stats) map[string]interface{} {
	return map[string]interface{}{
		"size":     s.Size,
		"max_size": s.MaxSize,
		"expired":  s.ExpiredItems,
		"hits":     s.Hits,
		"misses":   s.Misses,
		"ttl":      s.DefaultExpiry.String(),
	}
}

// handleUpdate routes one update. It runs on a worker goroutine.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	var (
		chatID int64
		err    error
	)

	switch {
	case update.CallbackQuery != nil:
		if update.CallbackQuery.Message != nil {
			chatID = update.CallbackQuery.Message.Chat.ID
		}
		err = b.handleCallbackQuery(ctx, update.CallbackQuery)
	case update.Message != nil:
		chatID = update.Message.Chat.ID
		err = b.handleMessage(ctx, update.Message)
	}

	if err != nil && chatID != 0 {
		b.sendText(ctx, chatID, GenericErrorMessage, nil)
	}
	return err
}

// regexAnalyzer is used when no AI client is wired.
type regexAnalyzer struct{}

func (regexAnalyzer) AnalyzeExpense(_ context.Context, text string) (parser.Expense, llm.Source) {
	return parser.Parse(text), llm.SourceRegex
}
