package utils

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/go-redis/redis/v8"
)

// CodeStore hands out short-lived, single-use verification codes keyed by
// email. The Redis implementation survives restarts and expires entries on
// its own, unlike an in-memory map.
type CodeStore interface {
	Issue(ctx context.Context, email string) (string, error)
	Consume(ctx context.Context, email, code string) (bool, error)
}

type redisCodeStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCodeStore wraps a Redis client with the default 10 minute TTL.
func NewCodeStore(client *redis.Client) CodeStore {
	return &redisCodeStore{client: client, ttl: 10 * time.Minute}
}

func codeKey(email string) string { return "verification:" + email }

func (s *redisCodeStore) Issue(ctx context.Context, email string) (string, error) {
	code, err := randomDigits(6)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, codeKey(email), code, s.ttl).Err(); err != nil {
		return "", err
	}
	return code, nil
}

// Consume checks the code and deletes it on a match, so it can be used once.
func (s *redisCodeStore) Consume(ctx context.Context, email, code string) (bool, error) {
	stored, err := s.client.Get(ctx, codeKey(email)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if stored != code {
		return false, nil
	}
	s.client.Del(ctx, codeKey(email))
	return true, nil
}

func randomDigits(n int) (string, error) {
	out := make([]byte, n)
	for i := range out {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		out[i] = byte('0' + d.Int64())
	}
	return string(out), nil
}

// Codes is the process-wide store; wired up in main after Redis connects.
var Codes CodeStore
