// Package bot is the Telegram front end: it links chats to registered users,
// mirrors notifications and exposes the donation actions as inline buttons.
package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	tele "gopkg.in/telebot.v3"

	"foodshare/pkg/logger"
	"foodshare/pkg/models"
	"foodshare/service"
)

var ErrNotLinked = errors.New("bot: user has no linked telegram chat")

// sender is the part of *tele.Bot used for pushes.
type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

type session struct {
	UserID int64
	Role   models.Role
}

type Bot struct {
	Bot *tele.Bot
	Log logger.ILogger
	Svc service.IServiceManager

	out sender

	mu       sync.RWMutex
	sessions map[int64]*session
}

func New(token string, log logger.ILogger) (*Bot, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error("telegram handler failed", logger.Error(err))
		},
	})
	if err != nil {
		return nil, err
	}
	return &Bot{
		Bot:      b,
		Log:      log,
		out:      b,
		sessions: make(map[int64]*session),
	}, nil
}

// Attach wires the services and registers handlers. The bot is created
// before the services so it can be handed to them as their Pusher.
func (b *Bot) Attach(svc service.IServiceManager) {
	b.Svc = svc
	b.registerHandlers()
}

func (b *Bot) Start() {
	b.Log.Info("telegram bot started")
	b.Bot.Start()
}

func (b *Bot) Stop() {
	b.Bot.Stop()
}

// Push implements service.Pusher.
func (b *Bot) Push(_ context.Context, user *models.User, message string) error {
	if user.TelegramID == nil {
		return ErrNotLinked
	}
	_, err := b.out.Send(tele.ChatID(*user.TelegramID), "🔔 "+message)
	return err
}

func (b *Bot) session(chatID int64) (*session, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.sessions[chatID]
	return s, ok
}

func (b *Bot) remember(chatID int64, user *models.User) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &session{UserID: user.ID, Role: user.Role}
	b.sessions[chatID] = s
	return s
}

func (s *session) actor() models.Actor {
	return models.Actor{ID: s.UserID, Role: s.Role}
}

var messages = map[string]string{
	"welcome":        "👋 Welcome to FoodShare!\nShare your phone number to link this chat with your account.",
	"share_contact":  "📱 Share phone number",
	"own_contact":    "Please share your own phone number.",
	"not_registered": "We could not find an account with this phone number. Register in the app first.",
	"linked":         "✅ Chat linked. You will get your notifications here.",
	"link_first":     "Send /start and share your phone number first.",
	"menu":           "Choose an action:",
	"no_donations":   "📭 Nothing here yet.",
	"no_tasks":       "📭 No delivery tasks right now.",
	"no_notif":       "📭 No notifications.",
	"failed":         "❌ Something went wrong, try again later.",
}

const (
	btnAvailable     = "🍱 Available food"
	btnMyDonations   = "📦 My donations"
	btnMyClaims      = "🧾 My claims"
	btnTasks         = "🚚 Delivery tasks"
	btnLeaderboard   = "🏆 Leaderboard"
	btnNotifications = "🔔 Notifications"
)

func (b *Bot) registerHandlers() {
	b.Bot.Handle("/start", b.handleStart)
	b.Bot.Handle(tele.OnContact, b.handleContact)

	b.Bot.Handle(btnAvailable, b.handleAvailable)
	b.Bot.Handle(btnMyDonations, b.handleMyDonations)
	b.Bot.Handle(btnMyClaims, b.handleMyClaims)
	b.Bot.Handle(btnTasks, b.handleTasks)
	b.Bot.Handle(btnLeaderboard, b.handleLeaderboard)
	b.Bot.Handle(btnNotifications, b.handleNotifications)

	b.Bot.Handle(tele.OnCallback, b.handleCallback)
}
