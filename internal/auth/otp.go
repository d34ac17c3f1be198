package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"hirelane/internal/apperr"
	"hirelane/internal/logger"
	"hirelane/internal/store"
	"hirelane/internal/validation"
)

// CodeSender delivers a login code to a phone.
type CodeSender interface {
	Send(ctx context.Context, phone, code string) error
}

// LogSender writes codes to the log. It stands in for an SMS gateway.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, phone, code string) error {
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}
	logger.FromContext(ctx, log).Info("otp issued", "phone", phone, "code", code)
	return nil
}

// OTPConfig tunes code issuance.
type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
	// FixedCode replaces random codes when set. Development only.
	FixedCode string
}

// OTPService issues and verifies one-time login codes.
type OTPService struct {
	store  store.OTPStore
	sender CodeSender
	config OTPConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewOTPService creates an OTP service. A nil sender logs codes.
func NewOTPService(s store.OTPStore, sender CodeSender, config OTPConfig, log *slog.Logger) *OTPService {
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if log == nil {
		log = slog.Default()
	}
	if sender == nil {
		sender = LogSender{Logger: log}
	}
	return &OTPService{store: s, sender: sender, config: config, logger: log, now: time.Now}
}

func otpError(field, msg string) error {
	return apperr.Validation(map[string]string{field: msg})
}

// Issue stores a fresh code for phone, replacing any pending one, and sends
// it. It returns how long the code stays valid.
func (s *OTPService) Issue(ctx context.Context, phone string) (time.Duration, error) {
	if !validation.Phone(phone) {
		return 0, otpError("phone", "must be a valid Indian mobile number (10 digits starting with 6-9)")
	}

	code := s.config.FixedCode
	if code == "" {
		n, err := rand.Int(rand.Reader, big.NewInt(900000))
		if err != nil {
			return 0, apperr.Internal(err, "failed to generate code")
		}
		code = fmt.Sprintf("%06d", n.Int64()+100000)
	}

	rec := store.OTPRecord{
		Phone:     phone,
		CodeHash:  HashKey(code),
		ExpiresAt: s.now().Add(s.config.TTL).UTC(),
	}
	if err := s.store.SaveOTP(ctx, rec); err != nil {
		logger.FromContext(ctx, s.logger).Error("failed to save otp", "error", err)
		return 0, apperr.Internal(err, "failed to issue code")
	}
	if err := s.sender.Send(ctx, phone, code); err != nil {
		logger.FromContext(ctx, s.logger).Error("failed to send otp", "error", err)
		return 0, apperr.Internal(err, "failed to send code")
	}
	return s.config.TTL, nil
}

// Verify checks code against the pending code for phone. Expired codes and
// codes that used up their attempts are discarded. A correct code is
// consumed.
func (s *OTPService) Verify(ctx context.Context, phone, code string) error {
	rec, err := s.store.GetOTP(ctx, phone)
	if errors.Is(err, store.ErrNotFound) {
		return otpError("otp", "not found or expired, request a new code")
	}
	if err != nil {
		logger.FromContext(ctx, s.logger).Error("failed to load otp", "error", err)
		return apperr.Internal(err, "failed to verify code")
	}

	if s.now().After(rec.ExpiresAt) {
		s.discard(ctx, phone)
		return otpError("otp", "has expired, request a new code")
	}
	if rec.Attempts >= s.config.MaxAttempts {
		s.discard(ctx, phone)
		return otpError("otp", "too many failed attempts, request a new code")
	}

	if subtle.ConstantTimeCompare([]byte(HashKey(code)), []byte(rec.CodeHash)) != 1 {
		if _, err := s.store.IncrementOTPAttempts(ctx, phone); err != nil {
			logger.FromContext(ctx, s.logger).Warn("failed to count otp attempt", "error", err)
		}
		return otpError("otp", "is invalid")
	}

	s.discard(ctx, phone)
	return nil
}

func (s *OTPService) discard(ctx context.Context, phone string) {
	if err := s.store.DeleteOTP(ctx, phone); err != nil {
		logger.FromContext(ctx, s.logger).Warn("failed to delete otp", "error", err)
	}
}
