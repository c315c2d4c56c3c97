package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/techspirit-99/stock-prediction-app/config"
	"github.com/techspirit-99/stock-prediction-app/internal/model"
	"github.com/techspirit-99/stock-prediction-app/utils"
)

// RedisSession stores one session record per chat: credential, user record
// and dashboard view state together, expiring after cfg.SessionExpiration.
type RedisSession struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisSession(redisClient *redis.Client, cfg *config.Config) *RedisSession {
	return &RedisSession{redis: redisClient, cfg: cfg}
}

func (s *RedisSession) GetSession(ctx context.Context, key string) (model.Session, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	res, err := s.redis.Get(ctx, sessionKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Session{}, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return model.Session{}, err
	}

	sess := model.Session{}
	if err := json.Unmarshal([]byte(res), &sess); err != nil {
		// Corrupt record: drop it and report absence so the caller lands in
		// the login flow instead of failing the handler.
		slog.Error(
			"can't unmarshall session, deleting record",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("key", key),
		)
		_ = s.redis.Del(ctx, sessionKey(key)).Err()
		return model.Session{}, ErrNotFound
	}

	return sess, nil
}

func (s *RedisSession) SetSession(ctx context.Context, key string, sess model.Session) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	sessJson, err := json.Marshal(sess)
	if err != nil {
		slog.Error("can't marshall session", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return errors.New("can't marshall session")
	}

	if err := s.redis.Set(ctx, sessionKey(key), sessJson, s.cfg.SessionExpiration).Err(); err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return err
	}

	return nil
}

// DeleteSession removes the whole session record: credential and user record
// go away together, which is what logout requires.
func (s *RedisSession) DeleteSession(ctx context.Context, key string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	if err := s.redis.Del(ctx, sessionKey(key)).Err(); err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return err
	}

	return nil
}

func sessionKey(key string) string {
	return "session:" + key
}
