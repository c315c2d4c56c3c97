// Package chart renders the dashboard's two line charts as PNGs: the
// 6-month closing-price history and the model forecast.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/techspirit-99/stock-prediction-app/internal/model/stockModel"
	gochart "github.com/wcharczuk/go-chart/v2"
)

const dateLayout = "2006-01-02"

var ErrTooFewPoints = errors.New("error need at least two points to chart")

// History renders the closing-price series. The Y axis ranges to the data,
// never forced down to zero, so small price moves stay visible.
func History(ticker string, history stockModel.History) ([]byte, error) {
	if len(history.Dates) != len(history.Close) {
		return nil, fmt.Errorf("lengths dates(%d) != close(%d)", len(history.Dates), len(history.Close))
	}
	if len(history.Close) < 2 {
		return nil, ErrTooFewPoints
	}

	xs := make([]time.Time, 0, len(history.Dates))
	for _, d := range history.Dates {
		t, err := time.Parse(dateLayout, d)
		if err != nil {
			return nil, fmt.Errorf("bad date label %q: %w", d, err)
		}
		xs = append(xs, t)
	}

	return render(ticker+" close price, 6 months", xs, history.Close)
}

// Forecast derives len(values) consecutive calendar-date labels starting the
// day after start and renders the forecast series against them. The labels
// are a pure function of start and the count; the backend supplies values
// only, never dates.
func Forecast(ticker string, start time.Time, values []float64) ([]byte, error) {
	if len(values) < 2 {
		return nil, ErrTooFewPoints
	}
	return render(ticker+" predicted price", ForecastDates(start, len(values)), values)
}

// ForecastDates returns days consecutive calendar dates beginning the day
// after from.
func ForecastDates(from time.Time, days int) []time.Time {
	dates := make([]time.Time, 0, days)
	for i := 1; i <= days; i++ {
		dates = append(dates, from.AddDate(0, 0, i))
	}
	return dates
}

func render(title string, xs []time.Time, ys []float64) ([]byte, error) {
	graph := gochart.Chart{
		Title: title,
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeDateValueFormatter,
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				XValues: xs,
				YValues: ys,
			},
		},
	}

	buf := &bytes.Buffer{}
	if err := graph.Render(gochart.PNG, buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
