package notify

import (
	"context"
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"

	"classbell/pkg/logx"
)

// LogSink writes reminders to the structured log. It is the fallback sink
// so a reminder is never silently lost when no push channel is configured.
type LogSink struct {
	log logx.Logger
}

func NewLogSink(log logx.Logger) *LogSink {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Notify(ctx context.Context, r Reminder) error {
	_ = ctx
	s.log.Info("class reminder",
		logx.Int64("class_id", r.ClassID),
		logx.String("name", r.ClassName),
		logx.String("room", r.Room),
		logx.String("start", r.StartTime),
		logx.String("professor", r.Professor),
	)
	return nil
}

// TelegramConfig configures the Telegram reminder sink.
type TelegramConfig struct {
	Token  string
	ChatID int64
}

// TelegramSink pushes reminders to one Telegram chat.
type TelegramSink struct {
	bot    *tele.Bot
	chatID int64
	log    logx.Logger
}

func NewTelegramSink(cfg TelegramConfig, log logx.Logger) (*TelegramSink, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is not set")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	// Send-only: no poller, the bot never consumes updates.
	b, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}
	return &TelegramSink{bot: b, chatID: cfg.ChatID, log: log}, nil
}

func (s *TelegramSink) Notify(ctx context.Context, r Reminder) error {
	_ = ctx
	_, err := s.bot.Send(&tele.Chat{ID: s.chatID}, r.Text(), &tele.SendOptions{
		DisableWebPagePreview: true,
	})
	return err
}

