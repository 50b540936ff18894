package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type tokenRepository struct {
	db *database.DB
}

func NewTokenRepository(db *database.DB) attendance.TokenRepository {
	return &tokenRepository{db: db}
}

// Save implements attendance.TokenRepository.
func (r *tokenRepository) Save(ctx context.Context, token attendance.Token) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO scan_tokens (value, employee_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := q.Exec(ctx, query, token.Value, token.EmployeeID, token.ExpiresAt, token.CreatedAt); err != nil {
		return storeErr(fmt.Errorf("failed to save token: %w", err))
	}
	return nil
}

// Consume implements attendance.TokenRepository.
// The DELETE ... RETURNING makes consumption single-use under concurrency.
func (r *tokenRepository) Consume(ctx context.Context, value string, now time.Time) (attendance.Token, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		DELETE FROM scan_tokens
		WHERE value = $1 AND expires_at > $2
		RETURNING value, employee_id, expires_at, created_at
	`

	var t attendance.Token
	err := q.QueryRow(ctx, query, value, now).Scan(&t.Value, &t.EmployeeID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Token{}, attendance.ErrExpiredOrUnknownToken
		}
		return attendance.Token{}, storeErr(fmt.Errorf("failed to consume token: %w", err))
	}

	return t, nil
}

// PurgeExpired implements attendance.TokenRepository.
func (r *tokenRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	q := GetQuerier(ctx, r.db)

	cmdTag, err := q.Exec(ctx, `DELETE FROM scan_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, storeErr(fmt.Errorf("failed to purge expired tokens: %w", err))
	}
	return cmdTag.RowsAffected(), nil
}
