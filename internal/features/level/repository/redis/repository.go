package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/member"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/level/repository"
)

const (
	LevelKey = "level:%s:%s"
	LevelTTL = time.Minute
)

// cachingRepository serves levels from redis and falls back to the wrapped
// repository on a miss. Redis failures degrade to a direct read.
type cachingRepository struct {
	client redis.Cmdable
	next   repository.LevelRepository
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCachingRepository(client redis.Cmdable, next repository.LevelRepository, logger zerolog.Logger) repository.LevelRepository {
	return &cachingRepository{
		client: client,
		next:   next,
		ttl:    LevelTTL,
		logger: logger,
	}
}

func levelKey(key member.Key) string {
	return fmt.Sprintf(LevelKey, key.GuildID, key.MemberID)
}

func (r *cachingRepository) Level(ctx context.Context, key member.Key) (int, error) {
	cached, err := r.client.Get(ctx, levelKey(key)).Int()
	switch {
	case err == nil:
		return cached, nil
	case !errors.Is(err, redis.Nil):
		r.logger.Warn().Err(err).Str("key", key.String()).Msg("Level cache read failed")
	}

	level, err := r.next.Level(ctx, key)
	if err != nil {
		return 0, err
	}
	if err := r.client.Set(ctx, levelKey(key), strconv.Itoa(level), r.ttl).Err(); err != nil {
		r.logger.Warn().Err(err).Str("key", key.String()).Msg("Level cache write failed")
	}
	return level, nil
}
