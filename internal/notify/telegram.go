package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"ContestScoreAPI/internal/config"
	"ContestScoreAPI/internal/models/domain"
	"ContestScoreAPI/internal/results"
	"ContestScoreAPI/internal/utils/logger/sl"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
)

const maxMessageLen = 4096

// ContestReader looks up contests for chat commands.
type ContestReader interface {
	GetContestByID(ctx context.Context, contestID uuid.UUID) (*domain.Contest, error)
}

// ResultsSource computes contest results for chat commands.
type ResultsSource interface {
	Results(ctx context.Context, contestID uuid.UUID) (*results.ContestResults, error)
}

// Telegram posts podiums to a chat and answers /results commands.
type Telegram struct {
	b        *bot.Bot
	chatID   int64
	contests ContestReader
	results  ResultsSource
	ctx      context.Context
	cancel   context.CancelFunc
	log      *slog.Logger
}

// New returns a Telegram notifier when a token is configured, otherwise Nop.
func New(logger *slog.Logger, cfg *config.Config, contests ContestReader, source ResultsSource) (Notifier, error) {
	op := "notify.New()"
	if cfg.NotifyConfig.TelegramToken == "" {
		return Nop{}, nil
	}
	log := logger.With(slog.String("op", op))

	ctx, cancel := context.WithCancel(context.Background())
	t := &Telegram{
		chatID:   cfg.NotifyConfig.TelegramChatID,
		contests: contests,
		results:  source,
		ctx:      ctx,
		cancel:   cancel,
		log:      logger.With(slog.String("component", "telegram")),
	}

	b, err := bot.New(cfg.NotifyConfig.TelegramToken,
		bot.WithDefaultHandler(t.defaultHandler),
		bot.WithSkipGetMe(),
	)
	if err != nil {
		cancel()
		log.Error("error creating telegram bot", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	t.b = b

	log.Info("telegram notifier created")
	return t, nil
}

// Start polls for updates until Shutdown.
func (t *Telegram) Start() {
	t.log.Info("starting telegram bot polling")
	t.b.Start(t.ctx)
	t.log.Info("telegram bot polling stopped")
}

// ResultsPublished posts the podium of every category to the configured chat.
func (t *Telegram) ResultsPublished(ctx context.Context, contest domain.Contest, res *results.ContestResults) error {
	op := "notify.ResultsPublished"
	if t.chatID == 0 {
		return nil
	}
	if err := t.sendText(ctx, t.chatID, 0, formatPodium(contest, res)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (t *Telegram) defaultHandler(ctx context.Context, _ *bot.Bot, update *models.Update) {
	op := "notify.defaultHandler()"
	log := t.log.With(slog.String("op", op))

	msg := update.Message
	if msg == nil || !isCommand(msg) {
		return
	}
	if msg.From != nil {
		log.Info("input command",
			slog.String("user_id", strconv.FormatInt(msg.From.ID, 10)),
			slog.String("user_name", msg.From.Username),
			slog.String("text", msg.Text),
		)
	}

	switch commandText(msg) {
	case "results":
		reply := t.resultsReply(ctx, commandArguments(msg))
		if err := t.sendText(ctx, msg.Chat.ID, msg.MessageThreadID, reply); err != nil {
			log.Error("reply failed", sl.Err(err))
		}
	}
}

// resultsReply answers /results <contest-id>. Unpublished results are never shown.
func (t *Telegram) resultsReply(ctx context.Context, arg string) string {
	contestID, err := uuid.Parse(strings.TrimSpace(arg))
	if err != nil {
		return "Usage: /results <contest-id>"
	}
	contest, err := t.contests.GetContestByID(ctx, contestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "Contest not found."
		}
		t.log.Error("contest lookup failed", sl.Err(err))
		return "Something went wrong, try again later."
	}
	if contest.ResultsPublished == nil {
		return "Results of " + contest.Name + " are not published yet."
	}
	res, err := t.results.Results(ctx, contestID)
	if err != nil {
		t.log.Error("results lookup failed", sl.Err(err))
		return "Something went wrong, try again later."
	}
	return formatPodium(*contest, res)
}

func (t *Telegram) sendText(ctx context.Context, chatID int64, threadID int, text string) error {
	for _, chunk := range splitTextIntoChunks(text, maxMessageLen) {
		p := &bot.SendMessageParams{
			ChatID: chatID,
			Text:   chunk,
		}
		if threadID != 0 {
			p.MessageThreadID = threadID
		}
		if _, err := t.b.SendMessage(ctx, p); err != nil {
			return fmt.Errorf("sendText: %w", err)
		}
	}
	return nil
}

// Shutdown stops polling.
func (t *Telegram) Shutdown(_ context.Context) error {
	t.cancel()
	return nil
}

func isCommand(msg *models.Message) bool {
	if msg == nil {
		return false
	}
	for _, e := range msg.Entities {
		if e.Type == models.MessageEntityTypeBotCommand && e.Offset == 0 {
			return true
		}
	}
	return false
}

// commandText extracts the command name without the slash and @botname suffix.
func commandText(msg *models.Message) string {
	if msg == nil {
		return ""
	}
	for _, e := range msg.Entities {
		if e.Type != models.MessageEntityTypeBotCommand || e.Offset != 0 {
			continue
		}
		runes := []rune(msg.Text)
		if e.Length > len(runes) {
			return ""
		}
		cmd := strings.TrimPrefix(string(runes[:e.Length]), "/")
		if i := strings.IndexByte(cmd, '@'); i >= 0 {
			cmd = cmd[:i]
		}
		return cmd
	}
	return ""
}

// commandArguments returns the text following the leading command.
func commandArguments(msg *models.Message) string {
	if msg == nil {
		return ""
	}
	for _, e := range msg.Entities {
		if e.Type != models.MessageEntityTypeBotCommand || e.Offset != 0 {
			continue
		}
		runes := []rune(msg.Text)
		if e.Length >= len(runes) {
			return ""
		}
		return strings.TrimPrefix(string(runes[e.Length:]), " ")
	}
	return ""
}
