// Package walletcache provides a Redis read-through cache for wallets.
package walletcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
)

const keyPrefix = "wallet:v1:"

// NewClient configures a Redis client from url and verifies connectivity.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, errors.New("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// Cache stores JSON encoded wallets in Redis.
//
// An entry is "<seq>|<json>". Entries written by the read path carry seq 0 and
// never replace an existing key; the ledger writes through with a sequence
// taken while it holds the wallet locks, and a write older than the stored
// entry is dropped. A deleted wallet leaves a tombstone that no write replaces
// until it expires.
//
// Redis failures never fail the caller: they are logged and treated as misses.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New returns wallet Cache keeping entries for ttl.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

const (
	seqKey    = keyPrefix + "seq"
	tombstone = "-"
)

func key(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}

// putScript stores ARGV[3..] under KEYS unless the key holds a tombstone or an
// entry with a sequence not older than ARGV[1]. Sequence 0 cannot be ordered,
// so it only drops the live entries.
var putScript = redis.NewScript(`
local seq = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])
for i, k in ipairs(KEYS) do
	local cur = redis.call('GET', k)
	if cur ~= '-' then
		if seq == 0 then
			if cur then
				redis.call('DEL', k)
			end
		else
			local curSeq = cur and tonumber(string.match(cur, '^(%d+)|'))
			if not curSeq or curSeq < seq then
				if ttl > 0 then
					redis.call('SET', k, ARGV[1] .. '|' .. ARGV[i + 2], 'PX', ARGV[2])
				else
					redis.call('SET', k, ARGV[1] .. '|' .. ARGV[i + 2])
				end
			end
		end
	end
end
return 0
`)

// Get returns the cached wallet, if any. A deleted wallet is reported as
// domain.ErrWalletNotFound.
func (c *Cache) Get(ctx context.Context, id int64) (domain.Wallet, bool, error) {
	l := zerolog.Ctx(ctx)

	data, err := c.client.Get(ctx, key(id)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			l.Warn().Err(err).Int64("wallet_id", id).Msg("wallet cache lookup failed")
		}

		return domain.Wallet{}, false, nil
	}

	if data == tombstone {
		return domain.Wallet{}, false, fmt.Errorf("%w: id %d", domain.ErrWalletNotFound, id)
	}

	_, payload, ok := strings.Cut(data, "|")
	if !ok {
		l.Warn().Int64("wallet_id", id).Msg("wallet cache entry is corrupted")
		return domain.Wallet{}, false, nil
	}

	var w domain.Wallet
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		l.Warn().Err(err).Int64("wallet_id", id).Msg("wallet cache entry is corrupted")
		return domain.Wallet{}, false, nil
	}

	return w, true, nil
}

// Add caches the wallet read from the store unless the key is already taken.
func (c *Cache) Add(ctx context.Context, w domain.Wallet) {
	l := zerolog.Ctx(ctx)

	data, err := json.Marshal(w)
	if err != nil {
		l.Warn().Err(err).Int64("wallet_id", w.ID).Msg("wallet cache encoding failed")
		return
	}

	if err := c.client.SetNX(ctx, key(w.ID), "0|"+string(data), c.ttl).Err(); err != nil {
		l.Warn().Err(err).Int64("wallet_id", w.ID).Msg("wallet cache store failed")
	}
}

// Sequence returns the next write sequence, or 0 if Redis is unavailable.
func (c *Cache) Sequence(ctx context.Context) int64 {
	seq, err := c.client.Incr(ctx, seqKey).Result()
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("wallet cache sequence failed")
		return 0
	}

	return seq
}

// Put writes committed wallets through to the cache.
func (c *Cache) Put(ctx context.Context, seq int64, wallets ...domain.Wallet) {
	if len(wallets) == 0 {
		return
	}

	l := zerolog.Ctx(ctx)

	keys := make([]string, len(wallets))
	args := make([]any, 0, len(wallets)+2)
	args = append(args, seq, c.ttl.Milliseconds())

	for i, w := range wallets {
		data, err := json.Marshal(w)
		if err != nil {
			l.Warn().Err(err).Int64("wallet_id", w.ID).Msg("wallet cache encoding failed")
			return
		}

		keys[i] = key(w.ID)
		args = append(args, string(data))
	}

	if err := putScript.Run(ctx, c.client, keys, args...).Err(); err != nil {
		l.Warn().Err(err).Strs("keys", keys).Msg("wallet cache write through failed")
	}
}

// Forget replaces the cached wallet with a tombstone.
func (c *Cache) Forget(ctx context.Context, id int64) {
	if err := c.client.Set(ctx, key(id), tombstone, c.ttl).Err(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("wallet_id", id).Msg("wallet cache tombstone failed")
	}
}
