package telegram

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/techspirit-99/stock-prediction-app/config"
	"github.com/techspirit-99/stock-prediction-app/data/session"
	"github.com/techspirit-99/stock-prediction-app/internal/chart"
	"github.com/techspirit-99/stock-prediction-app/internal/converter/telebotConverter"
	"github.com/techspirit-99/stock-prediction-app/internal/externalApi"
	"github.com/techspirit-99/stock-prediction-app/internal/model"
	"github.com/techspirit-99/stock-prediction-app/internal/model/stockModel"
	"github.com/techspirit-99/stock-prediction-app/internal/service"
	"github.com/techspirit-99/stock-prediction-app/utils"
	tele "gopkg.in/telebot.v4"
)

const (
	internalErrMsg   = "Something went wrong, try again later."
	loginPromptMsg   = "You are not logged in. Use /login to sign in first."
	sessionExpired   = "Your session has expired. Use /login to sign in again."
	stockNotFoundMsg = "Stock not found!"
	noSelectionMsg   = "Please search for a stock first."
	predictFailedMsg = "Error generating prediction."
	logoutMsg        = "Logged out. Your session is cleared."
	tickerPromptMsg  = "Enter a ticker (e.g. AAPL):"
)

type DashboardService interface {
	Search(ctx context.Context, chatID int64, token, rawTicker string) (stockModel.SearchResult, error)
	Predict(ctx context.Context, chatID int64, token, ticker string, days int) ([]float64, error)
}

type AuthApi interface {
	Login(ctx context.Context, username, password string) (token string, user model.User, err error)
}

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, sess model.Session) error
	DeleteSession(ctx context.Context, key string) error
}

// chartMessenger is the controller's outbound surface for chart messages.
type chartMessenger interface {
	Delete(c tele.Context, msgID int) error
	SendPhoto(c tele.Context, png []byte) (msgID int, err error)
}

type teleChartMessenger struct{}

func (teleChartMessenger) Delete(c tele.Context, msgID int) error {
	return c.Bot().Delete(&tele.StoredMessage{MessageID: strconv.Itoa(msgID), ChatID: c.Chat().ID})
}

func (teleChartMessenger) SendPhoto(c tele.Context, png []byte) (int, error) {
	photo := &tele.Photo{File: tele.FromReader(bytes.NewReader(png))}
	msg, err := c.Bot().Send(c.Chat(), photo)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

type Controller struct {
	cfg              *config.Config
	dashboardService DashboardService
	authApi          AuthApi
	session          Session
	charts           chartMessenger

	mu        sync.Mutex
	chatLocks map[int64]*sync.Mutex
}

func NewController(cfg *config.Config, dashboardService DashboardService, authApi AuthApi, sess Session) *Controller {
	return &Controller{
		cfg:              cfg,
		dashboardService: dashboardService,
		authApi:          authApi,
		session:          sess,
		charts:           teleChartMessenger{},
		chatLocks:        make(map[int64]*sync.Mutex),
	}
}

func (ctrl *Controller) Start(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	sess, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return c.Send(internalErrMsg)
	}

	if sess.Authenticated() {
		return c.Send("Signed in as " + sess.User.Username + ". Send a ticker (e.g. AAPL) to open its dashboard.")
	}

	return c.Send("Welcome to the stock dashboard! Use /login to sign in, then send a ticker (e.g. AAPL).")
}

func (ctrl *Controller) InitLogin(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	err := ctrl.updateSession(ctx, c, func(sess *model.Session) bool {
		sess.State = model.ExpectingCredentials
		return true
	})
	if err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send("Enter username and password separated by a space:")
}

func (ctrl *Controller) ProcessLogin(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	fields := strings.Fields(c.Message().Text)
	if len(fields) != 2 {
		return c.Send("Expected username and password separated by a space, try again:")
	}

	token, user, err := ctrl.authApi.Login(ctx, fields[0], fields[1])
	if err != nil {
		if errors.Is(err, externalApi.ErrUnauthorized) {
			return c.Send("Invalid username or password, try again:")
		}
		slog.Error("got error from authApi.Login", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	err = ctrl.updateSession(ctx, c, func(sess *model.Session) bool {
		*sess = model.Session{Token: token, User: user, State: model.DefaultState}
		return true
	})
	if err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send("Logged in as " + user.Username + ". Send a ticker (e.g. AAPL) to open its dashboard.")
}

func (ctrl *Controller) Logout(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	if err := ctrl.session.DeleteSession(ctx, chatKey(c)); err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send(logoutMsg)
}

// InitSearch puts the chat into a guided search: the next plain-text message
// is taken as the ticker.
func (ctrl *Controller) InitSearch(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	if _, ok := ctrl.authorizedSession(ctx, c); !ok {
		return nil
	}

	err := ctrl.updateSession(ctx, c, func(sess *model.Session) bool {
		sess.State = model.ExpectingTicker
		return true
	})
	if err != nil {
		return c.Send(internalErrMsg)
	}

	return c.Send(tickerPromptMsg)
}

// Search fetches the dashboard for the ticker in the incoming message: the
// dashboard message with the quote and predict button, then the history
// chart. The previous history chart message, if any, is deleted before the
// new one is sent, so each chart slot holds at most one live message.
func (ctrl *Controller) Search(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	sess, ok := ctrl.authorizedSession(ctx, c)
	if !ok {
		return nil
	}

	result, err := ctrl.dashboardService.Search(ctx, c.Chat().ID, sess.Token, c.Message().Text)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyTicker), errors.Is(err, service.ErrSuperseded):
			return nil
		case errors.Is(err, service.ErrTickerNotFound):
			return c.Send(stockNotFoundMsg)
		case errors.Is(err, service.ErrUnauthorized):
			return ctrl.expireSession(ctx, c)
		default:
			slog.Error("got error from dashboardService.Search", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return c.Send(internalErrMsg)
		}
	}

	text, markup := telebotConverter.DashboardResponse(result.Snapshot, ctrl.cfg.Dashboard.CurrencyPrefix, ctrl.cfg.Dashboard.ForecastDays)
	if err := c.Send(text, markup); err != nil {
		return err
	}

	// History (and its chart) is best-effort: the quote stays rendered even
	// when no chart can be produced.
	var png []byte
	if len(result.History.Close) > 0 {
		png, err = chart.History(result.Ticker, result.History)
		if err != nil {
			slog.Error("can't render history chart", slog.String("rqID", rqID), slog.String("err", err.Error()))
			png = nil
		}
	}

	err = ctrl.updateSession(ctx, c, func(sess *model.Session) bool {
		sess.Dashboard.Ticker = result.Ticker
		sess.Dashboard.Snapshot = result.Snapshot
		sess.State = model.DefaultState
		if png != nil {
			msgID, err := ctrl.replaceChartMessage(c, sess.Dashboard.PriceChartMsgID, png)
			if err != nil {
				slog.Error("can't send history chart", slog.String("rqID", rqID), slog.String("err", err.Error()))
			} else {
				sess.Dashboard.PriceChartMsgID = msgID
			}
		}
		return true
	})
	if err != nil {
		return c.Send(internalErrMsg)
	}

	return nil
}

// Predict handles the predict button. While the request is in flight the
// dashboard message shows a working label with the button removed; the
// message is restored to its idle state whatever the outcome. The one
// exception is a click that lost to an already-running prediction: that
// click must leave the busy state of the first one alone.
func (ctrl *Controller) Predict(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	defer func() { _ = c.Respond() }()

	sess, ok := ctrl.authorizedSession(ctx, c)
	if !ok {
		return nil
	}

	ticker := sess.Dashboard.Ticker
	if ticker == "" {
		return c.Send(noSelectionMsg)
	}

	busyText := telebotConverter.PredictingResponse(sess.Dashboard.Snapshot, ctrl.cfg.Dashboard.CurrencyPrefix)
	if err := c.Edit(busyText); err != nil {
		slog.Error("can't set busy state", slog.String("rqID", rqID), slog.String("err", err.Error()))
	}

	var opErr error
	defer func() {
		if errors.Is(opErr, service.ErrPredictionInFlight) {
			return
		}
		text, markup := telebotConverter.DashboardResponse(sess.Dashboard.Snapshot, ctrl.cfg.Dashboard.CurrencyPrefix, ctrl.cfg.Dashboard.ForecastDays)
		if err := c.Edit(text, markup); err != nil {
			slog.Error("can't restore dashboard message", slog.String("rqID", rqID), slog.String("err", err.Error()))
		}
	}()

	var predictions []float64
	predictions, opErr = ctrl.dashboardService.Predict(ctx, c.Chat().ID, sess.Token, ticker, ctrl.cfg.Dashboard.ForecastDays)
	if opErr != nil {
		switch {
		case errors.Is(opErr, service.ErrPredictionInFlight):
			return nil
		case errors.Is(opErr, service.ErrNoTickerSelected):
			return c.Send(noSelectionMsg)
		case errors.Is(opErr, service.ErrUnauthorized):
			return ctrl.expireSession(ctx, c)
		default:
			slog.Error("got error from dashboardService.Predict", slog.String("rqID", rqID), slog.String("err", opErr.Error()))
			return c.Send(predictFailedMsg)
		}
	}

	png, err := chart.Forecast(ticker, time.Now(), predictions)
	if err != nil {
		slog.Error("can't render forecast chart", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(predictFailedMsg)
	}

	// The session is re-read under the chat lock: the prediction ran for a
	// while and a concurrent search may have moved the dashboard on. A
	// result for a ticker that is no longer selected is discarded, and only
	// the forecast slot is written back, never the stale copy of the record.
	var sendErr error
	err = ctrl.updateSession(ctx, c, func(fresh *model.Session) bool {
		if fresh.Dashboard.Ticker != ticker {
			return false
		}
		msgID, err := ctrl.replaceChartMessage(c, fresh.Dashboard.ForecastChartMsgID, png)
		if err != nil {
			sendErr = err
			return false
		}
		fresh.Dashboard.ForecastChartMsgID = msgID
		return true
	})
	if err != nil {
		return c.Send(internalErrMsg)
	}
	if sendErr != nil {
		slog.Error("can't send forecast chart", slog.String("rqID", rqID), slog.String("err", sendErr.Error()))
		return c.Send(predictFailedMsg)
	}

	return nil
}

// updateSession is the only way handlers write the session: it re-reads the
// record under the per-chat lock and applies fn to that fresh copy, so a
// slow handler can never clobber fields a faster one updated meanwhile. fn
// returning false declines the write.
func (ctrl *Controller) updateSession(ctx context.Context, c tele.Context, fn func(sess *model.Session) bool) error {
	lock := ctrl.chatLock(c.Chat().ID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := ctrl.session.GetSession(ctx, chatKey(c))
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return err
	}

	if !fn(&sess) {
		return nil
	}

	return ctrl.session.SetSession(ctx, chatKey(c), sess)
}

func (ctrl *Controller) chatLock(chatID int64) *sync.Mutex {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	lock, ok := ctrl.chatLocks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		ctrl.chatLocks[chatID] = lock
	}
	return lock
}

// replaceChartMessage enforces the one-live-chart-per-slot rule: the old
// chart message is deleted before the new photo is sent, never after.
func (ctrl *Controller) replaceChartMessage(c tele.Context, oldMsgID int, png []byte) (int, error) {
	if oldMsgID != 0 {
		if err := ctrl.charts.Delete(c, oldMsgID); err != nil {
			// The user may have deleted it already; sending must not be blocked.
			slog.Warn("can't delete previous chart message", slog.String("err", err.Error()))
		}
	}

	return ctrl.charts.SendPhoto(c, png)
}

func (ctrl *Controller) authorizedSession(ctx context.Context, c tele.Context) (model.Session, bool) {
	sess, err := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			_ = c.Send(loginPromptMsg)
		} else {
			_ = c.Send(internalErrMsg)
		}
		return model.Session{}, false
	}

	if !sess.Authenticated() {
		_ = c.Send(loginPromptMsg)
		return model.Session{}, false
	}

	return sess, true
}

func (ctrl *Controller) getSessionFromTeleCtxOrStorage(ctx context.Context, c tele.Context) (model.Session, error) {
	sess, ok := c.Get("session").(model.Session)
	if ok {
		return sess, nil
	}

	rqID := utils.GetRequestIDFromCtx(ctx)
	sess, err := ctrl.session.GetSession(ctx, chatKey(c))
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		}
		return model.Session{}, err
	}
	return sess, nil
}

func (ctrl *Controller) expireSession(ctx context.Context, c tele.Context) error {
	_ = ctrl.session.DeleteSession(ctx, chatKey(c))
	return c.Send(sessionExpired)
}

func chatKey(c tele.Context) string {
	return strconv.FormatInt(c.Chat().ID, 10)
}
