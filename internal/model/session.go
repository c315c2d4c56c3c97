package model

import "github.com/techspirit-99/stock-prediction-app/internal/model/stockModel"

type state int

const (
	DefaultState state = iota
	ExpectingCredentials
	ExpectingTicker
)

// User is the stored user record written at login.
type User struct {
	Username string `json:"username"`
}

// Dashboard is the per-chat view state: the current ticker selection, the
// last rendered snapshot and the message IDs of the live chart messages.
// A zero message ID means no chart is live in that slot.
type Dashboard struct {
	Ticker             string
	Snapshot           stockModel.Snapshot
	PriceChartMsgID    int
	ForecastChartMsgID int
}

type Session struct {
	Token     string
	User      User
	State     state
	Dashboard Dashboard
}

// Authenticated reports whether the session carries a credential.
func (s Session) Authenticated() bool {
	return s.Token != ""
}
