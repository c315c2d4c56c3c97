package dashboardService

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/techspirit-99/stock-prediction-app/config"
	"github.com/techspirit-99/stock-prediction-app/internal/externalApi"
	"github.com/techspirit-99/stock-prediction-app/internal/model/stockModel"
	"github.com/techspirit-99/stock-prediction-app/internal/service"
	"github.com/techspirit-99/stock-prediction-app/utils"
)

type StockApi interface {
	GetCurrentPrice(ctx context.Context, token, ticker string) (stockModel.Snapshot, error)
	GetHistory(ctx context.Context, token, ticker, period string) (stockModel.History, error)
	Predict(ctx context.Context, token, ticker string, days int) ([]float64, error)
}

type Cache interface {
	GetSnapshot(ctx context.Context, ticker string) (stockModel.Snapshot, error)
	SetSnapshot(ctx context.Context, snapshot stockModel.Snapshot) error
}

// DashboardService coordinates the fetches behind one dashboard view: the
// quote-then-history search and the forecast request.
type DashboardService struct {
	cfg         *config.Config
	stockApi    StockApi
	cache       Cache
	searchSeq   *sequence
	predictions *inflight
}

func New(cfg *config.Config, stockApi StockApi, cache Cache) *DashboardService {
	return &DashboardService{
		cfg:         cfg,
		stockApi:    stockApi,
		cache:       cache,
		searchSeq:   newSequence(),
		predictions: newInflight(),
	}
}

// Search normalizes rawTicker and fetches the quote and then the history
// series for it. The quote must succeed before the history request is
// issued; a history failure is logged and yields a result with an empty
// series. A result that was overtaken by a newer Search for the same chat
// comes back as service.ErrSuperseded and must be discarded by the caller.
func (s *DashboardService) Search(ctx context.Context, chatID int64, token, rawTicker string) (stockModel.SearchResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.Search"

	ticker := strings.ToUpper(strings.TrimSpace(rawTicker))
	if ticker == "" {
		return stockModel.SearchResult{}, service.ErrEmptyTicker
	}

	seq := s.searchSeq.next(chatID)

	snapshot, err := s.getSnapshot(ctx, token, ticker)
	if err != nil {
		if errors.Is(err, externalApi.ErrNotFound) {
			return stockModel.SearchResult{}, service.ErrTickerNotFound
		}
		if errors.Is(err, externalApi.ErrUnauthorized) {
			return stockModel.SearchResult{}, service.ErrUnauthorized
		}
		slog.Error("got error from stockApi.GetCurrentPrice", slog.String("op", op), slog.String("rqID", rqID), slog.String("err", err.Error()))
		return stockModel.SearchResult{}, err
	}

	if !s.searchSeq.isLatest(chatID, seq) {
		return stockModel.SearchResult{}, service.ErrSuperseded
	}

	result := stockModel.SearchResult{Ticker: ticker, Snapshot: snapshot}

	history, err := s.stockApi.GetHistory(ctx, token, ticker, s.cfg.Dashboard.HistoryPeriod)
	if err != nil {
		// History is best-effort once the quote succeeded: the dashboard
		// stays usable with the quote alone.
		slog.Error("got error from stockApi.GetHistory", slog.String("op", op), slog.String("rqID", rqID), slog.String("err", err.Error()))
	} else {
		result.History = history
	}

	if !s.searchSeq.isLatest(chatID, seq) {
		return stockModel.SearchResult{}, service.ErrSuperseded
	}

	return result, nil
}

// Predict requests days future price points for the chat's selected ticker.
// A search must have selected a ticker first, and only one prediction per
// chat may be in flight at a time.
func (s *DashboardService) Predict(ctx context.Context, chatID int64, token, ticker string, days int) ([]float64, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "DashboardService.Predict"

	if ticker == "" {
		return nil, service.ErrNoTickerSelected
	}

	if !s.predictions.acquire(chatID) {
		return nil, service.ErrPredictionInFlight
	}
	defer s.predictions.release(chatID)

	predictions, err := s.stockApi.Predict(ctx, token, ticker, days)
	if err != nil {
		if errors.Is(err, externalApi.ErrUnauthorized) {
			return nil, service.ErrUnauthorized
		}
		slog.Error("got error from stockApi.Predict", slog.String("op", op), slog.String("rqID", rqID), slog.String("err", err.Error()))
		return nil, err
	}

	return predictions, nil
}

func (s *DashboardService) getSnapshot(ctx context.Context, token, ticker string) (stockModel.Snapshot, error) {
	snapshot, err := s.cache.GetSnapshot(ctx, ticker)
	if err == nil {
		return snapshot, nil
	}

	snapshot, err = s.stockApi.GetCurrentPrice(ctx, token, ticker)
	if err != nil {
		return stockModel.Snapshot{}, err
	}

	if err := s.cache.SetSnapshot(ctx, snapshot); err != nil {
		rqID := utils.GetRequestIDFromCtx(ctx)
		slog.Error("got error from cache.SetSnapshot", slog.String("rqID", rqID), slog.String("err", err.Error()))
	}

	return snapshot, nil
}
