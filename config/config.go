package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel          string `env:"LOG_LEVEL"`
	Telegram          Telegram
	Redis             Redis
	API               API
	Cache             Cache
	Dashboard         Dashboard
	SessionExpiration time.Duration `env:"SESSION_EXPIRATION"`
}

type Telegram struct {
	Token      string        `env:"TELEGRAM_TOKEN"`
	UpdTimeout time.Duration `env:"TELEGRAM_UPD_TIMEOUT"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"`
}

type API struct {
	Debug    bool          `env:"API_DEBUG"`
	Timeout  time.Duration `env:"API_TIMEOUT"`
	StockApi StockApi
	AuthApi  AuthApi
}

type StockApi struct {
	Url string `env:"STOCK_API_URL"`
}

type AuthApi struct {
	Url string `env:"AUTH_API_URL"`
}

type Cache struct {
	QuoteExpiration time.Duration `env:"CACHE_QUOTE_EXPIRATION"`
}

type Dashboard struct {
	HistoryPeriod  string `env:"DASHBOARD_HISTORY_PERIOD" envDefault:"6mo"`
	ForecastDays   int    `env:"DASHBOARD_FORECAST_DAYS" envDefault:"7"`
	CurrencyPrefix string `env:"DASHBOARD_CURRENCY_PREFIX" envDefault:"$"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
