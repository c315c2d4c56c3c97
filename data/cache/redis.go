package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/techspirit-99/stock-prediction-app/config"
	"github.com/techspirit-99/stock-prediction-app/internal/model/stockModel"
	"github.com/techspirit-99/stock-prediction-app/utils"
)

var ErrNotFound = errors.New("error cache miss")

// RedisCache keeps recent quotes for a short TTL so repeated searches for
// the same ticker don't hit the backend every time.
type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func (r *RedisCache) GetSnapshot(ctx context.Context, ticker string) (stockModel.Snapshot, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	res, err := r.redis.Get(ctx, quoteKey(ticker)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return stockModel.Snapshot{}, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", ticker))
		return stockModel.Snapshot{}, err
	}

	snapshot := stockModel.Snapshot{}
	if err := json.Unmarshal([]byte(res), &snapshot); err != nil {
		slog.Error(
			"can't unmarshall snapshot in GetSnapshot",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return stockModel.Snapshot{}, errors.New("can't unmarshall snapshot")
	}

	return snapshot, nil
}

func (r *RedisCache) SetSnapshot(ctx context.Context, snapshot stockModel.Snapshot) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	snapshotJson, err := json.Marshal(snapshot)
	if err != nil {
		slog.Error(
			"can't marshall snapshot in SetSnapshot",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.Any("snapshot", snapshot),
		)
		return errors.New("can't marshall snapshot")
	}

	if err := r.redis.Set(ctx, quoteKey(snapshot.Ticker), snapshotJson, r.cfg.Cache.QuoteExpiration).Err(); err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", snapshot.Ticker))
		return err
	}

	return nil
}

func quoteKey(ticker string) string {
	return "quote:" + ticker
}
