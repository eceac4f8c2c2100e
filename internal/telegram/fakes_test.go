package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hamyon/hamyon/internal/budget"
	"github.com/hamyon/hamyon/internal/config"
	"github.com/hamyon/hamyon/internal/database"
	"github.com/hamyon/hamyon/internal/llm"
	"github.com/hamyon/hamyon/internal/metrics"
	"github.com/hamyon/hamyon/internal/parser"
	"github.com/hamyon/hamyon/internal/speech"
)

// fakeAPI records everything the bot sends.
type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	nextID   int
	filePath string
	sendErr  error
	updates  chan tgbotapi.Update
	stopped  bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{filePath: "voice/file_1.oga", updates: make(chan tgbotapi.Update, 10)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFile(cfg tgbotapi.FileConfig) (tgbotapi.File, error) {
	return tgbotapi.File{FileID: cfg.FileID, FilePath: f.filePath}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

// texts returns the text of every message and edit sent to chatID.
func (f *fakeAPI) texts(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			if m.ChatID == chatID {
				out = append(out, m.Text)
			}
		case tgbotapi.EditMessageTextConfig:
			if m.ChatID == chatID {
				out = append(out, m.Text)
			}
		}
	}
	return out
}

func (f *fakeAPI) lastMessage(chatID int64) (tgbotapi.MessageConfig, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.sent) - 1; i >= 0; i-- {
		if m, ok := f.sent[i].(tgbotapi.MessageConfig); ok && m.ChatID == chatID {
			return m, true
		}
	}
	return tgbotapi.MessageConfig{}, false
}

func (f *fakeAPI) callbackAnswers() []tgbotapi.CallbackConfig {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []tgbotapi.CallbackConfig
	for _, c := range f.requests {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, cb)
		}
	}
	return out
}

func (f *fakeAPI) deletions() []tgbotapi.DeleteMessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []tgbotapi.DeleteMessageConfig
	for _, c := range f.requests {
		if d, ok := c.(tgbotapi.DeleteMessageConfig); ok {
			out = append(out, d)
		}
	}
	return out
}

func (f *fakeAPI) count(match func(tgbotapi.Chattable) bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.sent {
		if match(c) {
			n++
		}
	}
	return n
}

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu            sync.Mutex
	users         map[int64]*database.User
	partners      map[int][]int
	expenses      []database.Expense
	notifications []database.Notification
	stats         *database.Statistics
	markedRead    []int
	limitCalls    int
	userErr       error
	nextUserID    int
	nextExpenseID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[int64]*database.User), partners: make(map[int][]int)}
}

// addUser registers a user directly and returns it.
func (s *fakeStore) addUser(telegramID int64, username string, limit float64) *database.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	u := &database.User{ID: s.nextUserID, TelegramID: telegramID, Username: username, FullName: strings.ToUpper(username), BudgetLimit: limit}
	s.users[telegramID] = u
	return u
}

func (s *fakeStore) link(a, b int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partners[a] = append(s.partners[a], b)
	s.partners[b] = append(s.partners[b], a)
}

func (s *fakeStore) byID(id int) *database.User {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *fakeStore) GetUserByTelegramID(_ context.Context, telegramID int64) (*database.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userErr != nil {
		return nil, s.userErr
	}
	u, ok := s.users[telegramID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) RegisterUser(_ context.Context, telegramID int64, username, fullName string) (*database.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[telegramID]; ok {
		return nil, database.ErrAlreadyRegistered
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return nil, database.ErrUsernameTaken
		}
	}
	s.nextUserID++
	u := &database.User{ID: s.nextUserID, TelegramID: telegramID, Username: username, FullName: fullName}
	s.users[telegramID] = u
	cp := *u
	return &cp, nil
}

func (s *fakeStore) SetBudgetLimit(_ context.Context, userID int, limit float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limitCalls++
	u := s.byID(userID)
	if u == nil {
		return database.ErrUserNotFound
	}
	u.BudgetLimit = limit
	return nil
}

func (s *fakeStore) AddPartner(_ context.Context, userID, partnerID int) (*database.User, error) {
	if userID == partnerID {
		return nil, database.ErrSelfPartner
	}
	s.mu.Lock()
	p := s.byID(partnerID)
	s.mu.Unlock()
	if p == nil {
		return nil, database.ErrUserNotFound
	}
	s.link(userID, partnerID)
	cp := *p
	return &cp, nil
}

func (s *fakeStore) spent(userID int) float64 {
	var total float64
	for _, e := range s.expenses {
		if e.CreatorID == userID {
			total += e.Amount
		}
	}
	return total
}

func (s *fakeStore) CreateExpense(_ context.Context, in database.NewExpense) (*database.ExpenseResult, error) {
	if strings.TrimSpace(in.Title) == "" || in.Amount <= 0 {
		return nil, database.ErrInvalidExpense
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	creator := s.byID(in.CreatorID)
	if creator == nil {
		return nil, database.ErrUserNotFound
	}

	before := s.spent(in.CreatorID)
	s.nextExpenseID++
	e := database.Expense{ID: s.nextExpenseID, CreatorID: in.CreatorID, Title: in.Title, Amount: in.Amount, Category: in.Category, Date: in.Date}
	s.expenses = append(s.expenses, e)
	after := before + in.Amount

	res := &database.ExpenseResult{
		Expense:           &e,
		CreatorName:       creator.FullName,
		CreatorTelegramID: creator.TelegramID,
		Limit:             creator.BudgetLimit,
		SpentBefore:       before,
		SpentAfter:        after,
		Crossed:           budget.Crossed(before, after, creator.BudgetLimit),
		LimitReached:      budget.Reached(after, creator.BudgetLimit),
	}
	for _, pid := range s.partners[in.CreatorID] {
		p := s.byID(pid)
		res.Partners = append(res.Partners, database.Partner{UserID: p.ID, TelegramID: p.TelegramID, FullName: p.FullName})
	}
	return res, nil
}

func (s *fakeStore) DeleteExpense(_ context.Context, expenseID, userID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.expenses {
		if e.ID == expenseID && e.CreatorID == userID {
			s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) visible(userID int) []database.ExpenseView {
	viewers := map[int]bool{userID: true}
	for _, p := range s.partners[userID] {
		viewers[p] = true
	}
	var out []database.ExpenseView
	for _, e := range s.expenses {
		if viewers[e.CreatorID] {
			out = append(out, database.ExpenseView{Expense: e, CreatorName: s.byID(e.CreatorID).FullName})
		}
	}
	return out
}

func (s *fakeStore) RecentExpenses(_ context.Context, userID, limit int) ([]database.ExpenseView, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	views := s.visible(userID)
	var total float64
	for _, v := range views {
		total += v.Amount
	}
	if len(views) > limit {
		views = views[:limit]
	}
	return views, total, nil
}

func (s *fakeStore) ExportExpenses(_ context.Context, userID int) ([]database.ExpenseView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible(userID), nil
}

func (s *fakeStore) MonthlyStatistics(_ context.Context, _ int, month time.Time) (*database.Statistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stats == nil {
		return &database.Statistics{Month: month}, nil
	}
	return s.stats, nil
}

func (s *fakeStore) AddNotifications(_ context.Context, userIDs []int, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range userIDs {
		s.notifications = append(s.notifications, database.Notification{
			ID:        len(s.notifications) + 1,
			UserID:    id,
			Message:   message,
			CreatedAt: time.Now(),
		})
	}
	return nil
}

func (s *fakeStore) RecentNotifications(_ context.Context, userID, limit int) ([]database.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []database.Notification
	for i := len(s.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		if s.notifications[i].UserID == userID {
			out = append(out, s.notifications[i])
		}
	}
	return out, nil
}

func (s *fakeStore) MarkNotificationsRead(_ context.Context, userID int, ids []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markedRead = append(s.markedRead, ids...)
	for i := range s.notifications {
		for _, id := range ids {
			if s.notifications[i].ID == id && s.notifications[i].UserID == userID {
				s.notifications[i].IsRead = true
			}
		}
	}
	return nil
}

func (s *fakeStore) notificationsFor(userID int) []database.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []database.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// fixedAnalyzer returns the same expense for any text.
type fixedAnalyzer struct {
	expense parser.Expense
	texts   []string
}

func (a *fixedAnalyzer) AnalyzeExpense(_ context.Context, text string) (parser.Expense, llm.Source) {
	a.texts = append(a.texts, text)
	return a.expense, llm.SourceAI
}

type stubRecognizer struct {
	text  string
	err   error
	audio []byte
}

func (r *stubRecognizer) Name() string { return "stub" }

func (r *stubRecognizer) Recognize(_ context.Context, audio []byte) (string, error) {
	r.audio = audio
	return r.text, r.err
}

var _ speech.Recognizer = (*stubRecognizer)(nil)

func testConfig() *config.Config {
	return &config.Config{
		TelegramBotToken: "123456:TEST",
		Timezone:         "UTC",
		WorkerCount:      2,
		WorkerQueueSize:  10,
		MaxConcurrentOps: 4,
		MaxVoiceSeconds:  60,
	}
}

type testBot struct {
	*Bot
	api   *fakeAPI
	store *fakeStore
}

func newTestBot(deps Dependencies) *testBot {
	api := newFakeAPI()
	store := newFakeStore()
	deps.Store = store
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewMetricsCollector()
	}
	b := newBot(api, "TOKEN", testConfig(), deps)
	b.now = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }
	return &testBot{Bot: b, api: api, store: store}
}

func textMessage(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, FirstName: "Ali", LastName: "Valiyev"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}}
}

func commandMessage(userID int64, command string) tgbotapi.Update {
	u := textMessage(userID, "/"+command)
	u.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command) + 1}}
	return u
}

func voiceMessage(userID int64, duration int) tgbotapi.Update {
	u := textMessage(userID, "")
	u.Message.Voice = &tgbotapi.Voice{FileID: "voice-1", Duration: duration}
	return u
}

func callbackUpdate(userID int64, id, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   id,
		From: &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{
			MessageID: 42,
			Chat:      &tgbotapi.Chat{ID: userID},
		},
		Data: data,
	}}
}

var errStoreDown = errors.New("store down")
