package tgbot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/techspirit-99/stock-prediction-app/config"
	"github.com/techspirit-99/stock-prediction-app/data/session"
	"github.com/techspirit-99/stock-prediction-app/internal/model"
	"github.com/techspirit-99/stock-prediction-app/internal/model/tg/tgCallback"
	"github.com/techspirit-99/stock-prediction-app/internal/transport/telegram"
	customMW "github.com/techspirit-99/stock-prediction-app/internal/transport/telegram/middleware"
	"github.com/techspirit-99/stock-prediction-app/utils"
	tele "gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/middleware"
)

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, sess model.Session) error
}

type TGBot struct {
	bot     *tele.Bot
	ctrl    *telegram.Controller
	session Session
}

func New(cfg *config.Config, ctrl *telegram.Controller, session Session) *TGBot {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		panic(err)
	}

	return &TGBot{bot: b, ctrl: ctrl, session: session}
}

func (b *TGBot) Start() {
	b.bot.Use(middleware.Recover(), customMW.Logger())

	b.setupRoutes()

	go b.bot.Start()
	slog.Info("tgbot started!")
}

func (b *TGBot) Stop() {
	slog.Info("start stopping tgbot")
	b.bot.Stop()
	slog.Info("tgbot stopped")
}

func (b *TGBot) setupRoutes() {
	// Plain text is either the login credentials the session is waiting for
	// or a ticker to search.
	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		ctx := utils.CreateCtxWithRqID(c)
		rqID := utils.GetRequestIDFromCtx(ctx)

		chatSession, err := b.session.GetSession(ctx, strconv.FormatInt(c.Chat().ID, 10))
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return c.Send("Something went wrong, try again later.")
		}

		c.Set("session", chatSession)

		switch chatSession.State {
		case model.ExpectingCredentials:
			return b.ctrl.ProcessLogin(c)
		case model.ExpectingTicker:
			return b.ctrl.Search(c)
		default:
			return b.ctrl.Search(c)
		}
	})

	b.bot.Handle("/start", b.ctrl.Start)
	b.bot.Handle("/login", b.ctrl.InitLogin)
	b.bot.Handle("/logout", b.ctrl.Logout)
	b.bot.Handle("/search", b.ctrl.InitSearch)

	predictBtn := tele.Btn{Unique: tgCallback.Predict}
	b.bot.Handle(&predictBtn, b.ctrl.Predict)
}
