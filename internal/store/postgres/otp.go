package postgres

import (
	"context"
	"fmt"

	"hirelane/internal/store"
)

// SaveOTP replaces any pending code for the phone and resets its attempts.
func (s *Store) SaveOTP(ctx context.Context, rec store.OTPRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO otp_codes (phone, code_hash, expires_at, attempts)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (phone) DO UPDATE
		SET code_hash = EXCLUDED.code_hash, expires_at = EXCLUDED.expires_at, attempts = 0, created_at = NOW()
	`, rec.Phone, rec.CodeHash, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to save otp: %w", err)
	}
	return nil
}

func (s *Store) GetOTP(ctx context.Context, phone string) (*store.OTPRecord, error) {
	var rec store.OTPRecord
	err := s.db.QueryRowContext(ctx,
		"SELECT phone, code_hash, expires_at, attempts FROM otp_codes WHERE phone = $1", phone).
		Scan(&rec.Phone, &rec.CodeHash, &rec.ExpiresAt, &rec.Attempts)
	if err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

func (s *Store) IncrementOTPAttempts(ctx context.Context, phone string) (int, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx,
		"UPDATE otp_codes SET attempts = attempts + 1 WHERE phone = $1 RETURNING attempts", phone).
		Scan(&attempts)
	if err != nil {
		return 0, notFound(err)
	}
	return attempts, nil
}

func (s *Store) DeleteOTP(ctx context.Context, phone string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM otp_codes WHERE phone = $1", phone)
	return err
}
