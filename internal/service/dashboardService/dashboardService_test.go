package dashboardService

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techspirit-99/stock-prediction-app/config"
	"github.com/techspirit-99/stock-prediction-app/data/cache"
	"github.com/techspirit-99/stock-prediction-app/internal/externalApi"
	"github.com/techspirit-99/stock-prediction-app/internal/model/stockModel"
	"github.com/techspirit-99/stock-prediction-app/internal/service"
)

type stubStockApi struct {
	mu sync.Mutex

	currentCalls   int
	currentTickers []string
	currentErr     error
	snapshot       stockModel.Snapshot

	historyCalls   int
	historyPeriods []string
	historyErr     error
	history        stockModel.History

	predictCalls int
	predictErr   error
	predictions  []float64

	// When set, the Nth GetCurrentPrice (or any Predict) signals started and
	// waits on release before returning.
	blockCurrentCall int
	predictBlocked   bool
	started          chan struct{}
	release          chan struct{}
}

func (s *stubStockApi) GetCurrentPrice(ctx context.Context, token, ticker string) (stockModel.Snapshot, error) {
	s.mu.Lock()
	s.currentCalls++
	s.currentTickers = append(s.currentTickers, ticker)
	blocked := s.blockCurrentCall != 0 && s.currentCalls == s.blockCurrentCall
	s.mu.Unlock()

	if blocked {
		close(s.started)
		<-s.release
	}

	if s.currentErr != nil {
		return stockModel.Snapshot{}, s.currentErr
	}
	return s.snapshot, nil
}

func (s *stubStockApi) GetHistory(ctx context.Context, token, ticker, period string) (stockModel.History, error) {
	s.mu.Lock()
	s.historyCalls++
	s.historyPeriods = append(s.historyPeriods, period)
	s.mu.Unlock()

	if s.historyErr != nil {
		return stockModel.History{}, s.historyErr
	}
	return s.history, nil
}

func (s *stubStockApi) Predict(ctx context.Context, token, ticker string, days int) ([]float64, error) {
	s.mu.Lock()
	s.predictCalls++
	blocked := s.predictBlocked
	s.mu.Unlock()

	if blocked {
		close(s.started)
		<-s.release
	}

	if s.predictErr != nil {
		return nil, s.predictErr
	}
	return s.predictions, nil
}

type stubCache struct {
	mu        sync.Mutex
	snapshots map[string]stockModel.Snapshot
	setCalls  int
}

func (c *stubCache) GetSnapshot(ctx context.Context, ticker string) (stockModel.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot, ok := c.snapshots[ticker]
	if !ok {
		return stockModel.Snapshot{}, cache.ErrNotFound
	}
	return snapshot, nil
}

func (c *stubCache) SetSnapshot(ctx context.Context, snapshot stockModel.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCalls++
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Dashboard.HistoryPeriod = "6mo"
	cfg.Dashboard.ForecastDays = 7
	return cfg
}

func appleSnapshot() stockModel.Snapshot {
	return stockModel.Snapshot{
		Ticker: "AAPL",
		Name:   "Apple Inc.",
		Price:  decimal.NewFromFloat(150.0),
		Open:   decimal.NewFromFloat(148.5),
		High:   decimal.NewFromFloat(151.2),
		Low:    decimal.NewFromFloat(147.9),
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes ticker before any request", func(t *testing.T) {
		api := &stubStockApi{snapshot: appleSnapshot(), history: stockModel.History{Dates: []string{"2025-01-02", "2025-01-03"}, Close: []float64{150.1, 151.3}}}
		srv := New(testConfig(), api, &stubCache{})

		result, err := srv.Search(ctx, 1, "token", "  aapl ")
		require.NoError(t, err)

		assert.Equal(t, "AAPL", result.Ticker)
		require.Len(t, api.currentTickers, 1)
		assert.Equal(t, "AAPL", api.currentTickers[0])
	})

	t.Run("empty ticker issues zero requests", func(t *testing.T) {
		api := &stubStockApi{}
		srv := New(testConfig(), api, &stubCache{})

		_, err := srv.Search(ctx, 1, "token", "   ")
		assert.ErrorIs(t, err, service.ErrEmptyTicker)
		assert.Zero(t, api.currentCalls)
		assert.Zero(t, api.historyCalls)
	})

	t.Run("quote failure halts before history", func(t *testing.T) {
		api := &stubStockApi{currentErr: externalApi.ErrNotFound}
		srv := New(testConfig(), api, &stubCache{})

		_, err := srv.Search(ctx, 1, "token", "NOPE")
		assert.ErrorIs(t, err, service.ErrTickerNotFound)
		assert.Equal(t, 1, api.currentCalls)
		assert.Zero(t, api.historyCalls)
	})

	t.Run("quote completes before history begins with fixed period", func(t *testing.T) {
		api := &stubStockApi{snapshot: appleSnapshot(), history: stockModel.History{Dates: []string{"2025-01-02", "2025-01-03"}, Close: []float64{150.1, 151.3}}}
		srv := New(testConfig(), api, &stubCache{})

		result, err := srv.Search(ctx, 1, "token", "AAPL")
		require.NoError(t, err)

		require.Len(t, api.historyPeriods, 1)
		assert.Equal(t, "6mo", api.historyPeriods[0])
		assert.Len(t, result.History.Close, 2)
	})

	t.Run("history failure is non-blocking", func(t *testing.T) {
		api := &stubStockApi{snapshot: appleSnapshot(), historyErr: assert.AnError}
		srv := New(testConfig(), api, &stubCache{})

		result, err := srv.Search(ctx, 1, "token", "AAPL")
		require.NoError(t, err)

		assert.Equal(t, "Apple Inc.", result.Snapshot.Name)
		assert.Empty(t, result.History.Close)
	})

	t.Run("cached quote skips the current-price request", func(t *testing.T) {
		api := &stubStockApi{history: stockModel.History{Dates: []string{"2025-01-02", "2025-01-03"}, Close: []float64{150.1, 151.3}}}
		c := &stubCache{snapshots: map[string]stockModel.Snapshot{"AAPL": appleSnapshot()}}
		srv := New(testConfig(), api, c)

		result, err := srv.Search(ctx, 1, "token", "AAPL")
		require.NoError(t, err)

		assert.Zero(t, api.currentCalls)
		assert.Equal(t, 1, api.historyCalls)
		assert.Equal(t, "Apple Inc.", result.Snapshot.Name)
	})

	t.Run("expired token maps to ErrUnauthorized", func(t *testing.T) {
		api := &stubStockApi{currentErr: externalApi.ErrUnauthorized}
		srv := New(testConfig(), api, &stubCache{})

		_, err := srv.Search(ctx, 1, "stale", "AAPL")
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})

	t.Run("result overtaken by a newer search is discarded", func(t *testing.T) {
		api := &stubStockApi{
			snapshot:         appleSnapshot(),
			history:          stockModel.History{Dates: []string{"2025-01-02", "2025-01-03"}, Close: []float64{150.1, 151.3}},
			blockCurrentCall: 1,
			started:          make(chan struct{}),
			release:          make(chan struct{}),
		}
		srv := New(testConfig(), api, &stubCache{})

		firstDone := make(chan error, 1)
		go func() {
			_, err := srv.Search(ctx, 1, "token", "AAPL")
			firstDone <- err
		}()

		<-api.started

		_, err := srv.Search(ctx, 1, "token", "MSFT")
		require.NoError(t, err)

		close(api.release)
		assert.ErrorIs(t, <-firstDone, service.ErrSuperseded)
	})
}

func TestPredict(t *testing.T) {
	ctx := context.Background()

	t.Run("no selection issues zero requests", func(t *testing.T) {
		api := &stubStockApi{}
		srv := New(testConfig(), api, &stubCache{})

		_, err := srv.Predict(ctx, 1, "token", "", 7)
		assert.ErrorIs(t, err, service.ErrNoTickerSelected)
		assert.Zero(t, api.predictCalls)
	})

	t.Run("returns the backend predictions", func(t *testing.T) {
		api := &stubStockApi{predictions: []float64{150.5, 151.0, 151.4, 150.9, 152.2, 152.8, 153.1}}
		srv := New(testConfig(), api, &stubCache{})

		predictions, err := srv.Predict(ctx, 1, "token", "AAPL", 7)
		require.NoError(t, err)
		assert.Len(t, predictions, 7)
	})

	t.Run("second prediction for the same chat is rejected while one is in flight", func(t *testing.T) {
		api := &stubStockApi{
			predictions:    []float64{150.5, 151.0},
			predictBlocked: true,
			started:        make(chan struct{}),
			release:        make(chan struct{}),
		}
		srv := New(testConfig(), api, &stubCache{})

		firstDone := make(chan error, 1)
		go func() {
			_, err := srv.Predict(ctx, 1, "token", "AAPL", 7)
			firstDone <- err
		}()

		<-api.started

		_, err := srv.Predict(ctx, 1, "token", "AAPL", 7)
		assert.ErrorIs(t, err, service.ErrPredictionInFlight)

		close(api.release)
		require.NoError(t, <-firstDone)
		assert.Equal(t, 1, api.predictCalls)
	})

	t.Run("different chats predict independently", func(t *testing.T) {
		api := &stubStockApi{predictions: []float64{150.5, 151.0}}
		srv := New(testConfig(), api, &stubCache{})

		_, err := srv.Predict(ctx, 1, "token", "AAPL", 7)
		require.NoError(t, err)
		_, err = srv.Predict(ctx, 2, "token", "AAPL", 7)
		require.NoError(t, err)
	})
}
