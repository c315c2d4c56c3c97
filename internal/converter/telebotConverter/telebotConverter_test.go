package telebotConverter

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techspirit-99/stock-prediction-app/internal/model/stockModel"
	"github.com/techspirit-99/stock-prediction-app/internal/model/tg/tgCallback"
)

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

func TestDashboardResponse(t *testing.T) {
	text, markup := DashboardResponse(appleSnapshot(), "$", 7)

	assert.Contains(t, text, "Apple Inc. (AAPL)")
	assert.Contains(t, text, "$150.00")
	assert.Contains(t, text, "$148.50")
	assert.Contains(t, text, "$151.20")
	assert.Contains(t, text, "$147.90")

	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 1)
	assert.Equal(t, tgCallback.Predict, markup.InlineKeyboard[0][0].Unique)
	assert.Contains(t, markup.InlineKeyboard[0][0].Text, "7 days")
}

func TestPredictingResponse(t *testing.T) {
	text := PredictingResponse(appleSnapshot(), "$")

	assert.Contains(t, text, "$150.00")
	assert.Contains(t, text, "Predicting...")
}
