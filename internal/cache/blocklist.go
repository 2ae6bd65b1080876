package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// TokenBlocklist хранит отозванные access-токены до истечения их срока.
type TokenBlocklist struct {
	store Store
}

func NewTokenBlocklist(store Store) *TokenBlocklist {
	return &TokenBlocklist{store: store}
}

func blocklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "truowners:blocklist:" + hex.EncodeToString(sum[:])
}

func (b *TokenBlocklist) Block(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return b.store.Set(ctx, blocklistKey(token), []byte("1"), ttl)
}

func (b *TokenBlocklist) IsBlocked(ctx context.Context, token string) (bool, error) {
	_, ok, err := b.store.Get(ctx, blocklistKey(token))
	return ok, err
}
