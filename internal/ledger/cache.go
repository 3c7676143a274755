package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/seedbed-backend/internal/platform/envutil"
	"github.com/yungbote/seedbed-backend/internal/platform/logger"
)

// ProjectionCache keeps recent SeedState projections in Redis so hot
// reads skip the replay. Projection is referentially transparent, so a
// cached state is valid exactly until the seed's transaction set
// changes; Invalidate is called on every append.
//
// The cache is strictly optional: a nil *ProjectionCache is a valid
// no-op cache, which is what NewProjectionCache returns when REDIS_ADDR
// is not configured.
type ProjectionCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewProjectionCache(logg *logger.Logger) (*ProjectionCache, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		logg.Info("REDIS_ADDR not set, projection cache disabled")
		return nil, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttlSeconds := envutil.GetEnvAsInt("PROJECTION_CACHE_TTL_SECONDS", 300, logg)
	return &ProjectionCache{
		log: logg.With("service", "ProjectionCache"),
		rdb: rdb,
		ttl: time.Duration(ttlSeconds) * time.Second,
	}, nil
}

func cacheKey(seedID uuid.UUID) string {
	return "seedbed:projection:" + seedID.String()
}

// Get returns the cached projection for the seed, or nil on miss. Cache
// errors degrade to a miss; the caller replays from the ledger either
// way.
func (c *ProjectionCache) Get(ctx context.Context, seedID uuid.UUID) *SeedState {
	if c == nil || c.rdb == nil {
		return nil
	}
	raw, err := c.rdb.Get(ctx, cacheKey(seedID)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("projection cache read failed", "seed_id", seedID, "error", err)
		}
		return nil
	}
	var state SeedState
	if err := json.Unmarshal(raw, &state); err != nil {
		c.log.Warn("projection cache payload corrupt, dropping", "seed_id", seedID, "error", err)
		_ = c.rdb.Del(ctx, cacheKey(seedID)).Err()
		return nil
	}
	return &state
}

func (c *ProjectionCache) Put(ctx context.Context, state *SeedState) {
	if c == nil || c.rdb == nil || state == nil {
		return
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(state.SeedID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("projection cache write failed", "seed_id", state.SeedID, "error", err)
	}
}

func (c *ProjectionCache) Invalidate(ctx context.Context, seedID uuid.UUID) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, cacheKey(seedID)).Err(); err != nil {
		c.log.Warn("projection cache invalidate failed", "seed_id", seedID, "error", err)
	}
}

func (c *ProjectionCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
