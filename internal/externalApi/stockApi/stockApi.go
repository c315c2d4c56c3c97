package stockApi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/techspirit-99/stock-prediction-app/config"
	"github.com/techspirit-99/stock-prediction-app/internal/externalApi"
	"github.com/techspirit-99/stock-prediction-app/internal/model/stockModel"
	"github.com/techspirit-99/stock-prediction-app/utils"
)

type StockApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *StockApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.StockApi.Url).
		SetHeader("Content-Type", "application/json")
	return &StockApi{client: client}
}

type currentResponse struct {
	Ticker string `json:"ticker"`
	Info   struct {
		Name string `json:"name"`
	} `json:"info"`
	PriceData struct {
		Price decimal.Decimal `json:"price"`
		Open  decimal.Decimal `json:"open"`
		High  decimal.Decimal `json:"high"`
		Low   decimal.Decimal `json:"low"`
	} `json:"price_data"`
}

type historyResponse struct {
	Ticker  string `json:"ticker"`
	History struct {
		Dates []string  `json:"dates"`
		Close []float64 `json:"close"`
	} `json:"history"`
}

type predictResponse struct {
	Ticker      string    `json:"ticker"`
	Predictions []float64 `json:"predictions"`
}

// GetCurrentPrice requests the point-in-time quote for ticker. A not-found
// reply from the backend maps to externalApi.ErrNotFound, an auth failure to
// externalApi.ErrUnauthorized.
func (a *StockApi) GetCurrentPrice(ctx context.Context, token, ticker string) (stockModel.Snapshot, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start StockApi.GetCurrentPrice request", slog.String("rqID", rqID), slog.String("ticker", ticker))

	resp, err := a.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get("/api/stock/current/" + ticker)

	if err != nil {
		slog.Error("error while dialing StockApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return stockModel.Snapshot{}, err
	}

	if err := checkStatus(resp); err != nil {
		return stockModel.Snapshot{}, err
	}

	raw := currentResponse{}
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		slog.Error("can't unmarshall response into currentResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return stockModel.Snapshot{}, err
	}

	slog.Debug("StockApi.GetCurrentPrice request complete", slog.String("rqID", rqID))

	return stockModel.Snapshot{
		Ticker: ticker,
		Name:   raw.Info.Name,
		Price:  raw.PriceData.Price,
		Open:   raw.PriceData.Open,
		High:   raw.PriceData.High,
		Low:    raw.PriceData.Low,
	}, nil
}

// GetHistory requests the closing-price series for ticker over the given
// period (e.g. "6mo"). The dates and close arrays must be aligned; a length
// mismatch is an error, never a truncated series.
func (a *StockApi) GetHistory(ctx context.Context, token, ticker, period string) (stockModel.History, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start StockApi.GetHistory request", slog.String("rqID", rqID), slog.String("ticker", ticker))

	resp, err := a.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("period", period).
		Get("/api/stock/history/" + ticker)

	if err != nil {
		slog.Error("error while dialing StockApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return stockModel.History{}, err
	}

	if err := checkStatus(resp); err != nil {
		return stockModel.History{}, err
	}

	raw := historyResponse{}
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		slog.Error("can't unmarshall response into historyResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return stockModel.History{}, err
	}

	if len(raw.History.Dates) != len(raw.History.Close) {
		err := fmt.Errorf("lengths dates(%d) != close(%d)", len(raw.History.Dates), len(raw.History.Close))
		slog.Error("invalid history series", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return stockModel.History{}, err
	}

	slog.Debug("StockApi.GetHistory request complete", slog.String("rqID", rqID))

	return stockModel.History{Dates: raw.History.Dates, Close: raw.History.Close}, nil
}

// Predict asks the backend to produce days future price points for ticker.
func (a *StockApi) Predict(ctx context.Context, token, ticker string, days int) ([]float64, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start StockApi.Predict request", slog.String("rqID", rqID), slog.String("ticker", ticker), slog.Int("days", days))

	resp, err := a.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(map[string]int{"days": days}).
		Post("/api/stock/predict/" + ticker)

	if err != nil {
		slog.Error("error while dialing StockApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	raw := predictResponse{}
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		slog.Error("can't unmarshall response into predictResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	slog.Debug("StockApi.Predict request complete", slog.String("rqID", rqID))

	return raw.Predictions, nil
}

func checkStatus(resp *resty.Response) error {
	switch {
	case resp.IsSuccess():
		return nil
	case resp.StatusCode() == http.StatusNotFound:
		return externalApi.ErrNotFound
	case resp.StatusCode() == http.StatusUnauthorized:
		return externalApi.ErrUnauthorized
	default:
		return errors.New("unexpected status from StockApi: " + resp.Status())
	}
}
