// Package sequence issues short human-readable order numbers backed by a
// daily redis counter.
package sequence

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("sequence",
	fx.Provide(NewRedisGenerator),
)

const (
	OrderPrefix = "RB"

	suffixChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	suffixLen   = 2
)

type Generator interface {
	NextOrderNumber(ctx context.Context) (string, error)
}

type RedisGenerator struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisGenerator(rdb *redis.Client) Generator {
	return &RedisGenerator{rdb: rdb, now: time.Now}
}

// NextOrderNumber returns numbers like RB-260118-00A7X: day, base36 counter
// for that day, random suffix.
func (g *RedisGenerator) NextOrderNumber(ctx context.Context) (string, error) {
	day := g.now().UTC()
	key := fmt.Sprintf("seq:%s:%s", OrderPrefix, day.Format("060102"))

	seq, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return "", err
	}
	if seq == 1 {
		// the counter only has to outlive its day
		_ = g.rdb.Expire(ctx, key, 48*time.Hour).Err()
	}

	suffix, err := randomSuffix(suffixLen)
	if err != nil {
		return "", err
	}
	return format(OrderPrefix, day, seq, suffix), nil
}

func format(prefix string, day time.Time, seq int64, suffix string) string {
	encoded := strings.ToUpper(strconv.FormatInt(seq, 36))
	if len(encoded) < 3 {
		encoded = strings.Repeat("0", 3-len(encoded)) + encoded
	}
	return fmt.Sprintf("%s-%s-%s%s", prefix, day.UTC().Format("060102"), encoded, suffix)
}

func randomSuffix(n int) (string, error) {
	b := make([]byte, n)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(suffixChars))))
		if err != nil {
			return "", err
		}
		b[i] = suffixChars[num.Int64()]
	}
	return string(b), nil
}
