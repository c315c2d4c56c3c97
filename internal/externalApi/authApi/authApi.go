package authApi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/techspirit-99/stock-prediction-app/config"
	"github.com/techspirit-99/stock-prediction-app/internal/externalApi"
	"github.com/techspirit-99/stock-prediction-app/internal/model"
	"github.com/techspirit-99/stock-prediction-app/utils"
)

// AuthApi talks to the external login service that issues bearer tokens.
type AuthApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *AuthApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.AuthApi.Url).
		SetHeader("Content-Type", "application/json")
	return &AuthApi{client: client}
}

type loginResponse struct {
	AccessToken string     `json:"access_token"`
	User        model.User `json:"user"`
}

// Login exchanges credentials for a token and the user record. Rejected
// credentials map to externalApi.ErrUnauthorized.
func (a *AuthApi) Login(ctx context.Context, username, password string) (token string, user model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start AuthApi.Login request", slog.String("rqID", rqID), slog.String("username", username))

	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"username": username, "password": password}).
		Post("/api/auth/login")

	if err != nil {
		slog.Error("error while dialing AuthApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return "", model.User{}, err
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		return "", model.User{}, externalApi.ErrUnauthorized
	}

	if !resp.IsSuccess() {
		return "", model.User{}, errors.New("unexpected status from AuthApi: " + resp.Status())
	}

	raw := loginResponse{}
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		slog.Error("can't unmarshall response into loginResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return "", model.User{}, err
	}

	slog.Debug("AuthApi.Login request complete", slog.String("rqID", rqID))

	return raw.AccessToken, raw.User, nil
}
