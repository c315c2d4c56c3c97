package telebotConverter

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/techspirit-99/stock-prediction-app/internal/model/stockModel"
	"github.com/techspirit-99/stock-prediction-app/internal/model/tg/tgCallback"
	tele "gopkg.in/telebot.v4"
)

// DashboardResponse projects a quote into the dashboard message: name plus
// the four price fields, each with two decimals and the currency prefix,
// and the predict button underneath.
func DashboardResponse(snapshot stockModel.Snapshot, currencyPrefix string, forecastDays int) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}

	predictBtn := markup.Data(fmt.Sprintf("🔮 Predict next %d days", forecastDays), tgCallback.Predict)
	markup.Inline(markup.Row(predictBtn))

	return dashboardText(snapshot, currencyPrefix), markup
}

// PredictingResponse is the busy-state rendition of the dashboard message:
// same quote text, a working label instead of the button.
func PredictingResponse(snapshot stockModel.Snapshot, currencyPrefix string) string {
	var sb strings.Builder
	sb.WriteString(dashboardText(snapshot, currencyPrefix))
	sb.WriteString("\n⏳ Predicting... (this may take a minute)")
	return sb.String()
}

func dashboardText(snapshot stockModel.Snapshot, currencyPrefix string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📊 %s (%s)\n\n", snapshot.Name, snapshot.Ticker))
	sb.WriteString(fmt.Sprintf("💵 Current: %s\n", money(snapshot.Price, currencyPrefix)))
	sb.WriteString(fmt.Sprintf(" ▸ Open: %s\n", money(snapshot.Open, currencyPrefix)))
	sb.WriteString(fmt.Sprintf(" ▸ High: %s\n", money(snapshot.High, currencyPrefix)))
	sb.WriteString(fmt.Sprintf(" ▸ Low: %s\n", money(snapshot.Low, currencyPrefix)))

	return sb.String()
}

func money(d decimal.Decimal, prefix string) string {
	return prefix + d.StringFixed(2)
}
