package memory

import (
	"context"
	"time"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/attendance"
)

type tokenRepository struct {
	store *Store
}

func NewTokenRepository(store *Store) attendance.TokenRepository {
	return &tokenRepository{store: store}
}

// Save implements attendance.TokenRepository.
func (r *tokenRepository) Save(ctx context.Context, token attendance.Token) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	prev, existed := r.store.tokens[token.Value]
	r.store.tokens[token.Value] = token
	r.store.record(ctx, func() {
		if existed {
			r.store.tokens[prev.Value] = prev
		} else {
			delete(r.store.tokens, token.Value)
		}
	})
	return nil
}

// Consume implements attendance.TokenRepository.
func (r *tokenRepository) Consume(ctx context.Context, value string, now time.Time) (attendance.Token, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	token, ok := r.store.tokens[value]
	if !ok || token.IsExpired(now) {
		return attendance.Token{}, attendance.ErrExpiredOrUnknownToken
	}
	delete(r.store.tokens, value)
	r.store.record(ctx, func() { r.store.tokens[token.Value] = token })
	return token, nil
}

// PurgeExpired implements attendance.TokenRepository.
func (r *tokenRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var purged int64
	for value, token := range r.store.tokens {
		if token.IsExpired(now) {
			delete(r.store.tokens, value)
			saved := token
			r.store.record(ctx, func() { r.store.tokens[saved.Value] = saved })
			purged++
		}
	}
	return purged, nil
}
