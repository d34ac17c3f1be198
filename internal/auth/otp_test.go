package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"hirelane/internal/apperr"
	"hirelane/internal/store"
	"hirelane/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	codes map[string]string
	err   error
}

func (s *recordingSender) Send(ctx context.Context, phone, code string) error {
	if s.err != nil {
		return s.err
	}
	s.codes[phone] = code
	return nil
}

var otpNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestOTP(config OTPConfig) (*OTPService, *storetest.Store, *recordingSender) {
	st := storetest.New()
	sender := &recordingSender{codes: map[string]string{}}
	svc := NewOTPService(st, sender, config, nil)
	svc.now = func() time.Time { return otpNow }
	return svc, st, sender
}

func TestOTP_IssueAndVerify(t *testing.T) {
	svc, st, sender := newTestOTP(OTPConfig{})
	ctx := context.Background()

	ttl, err := svc.Issue(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, ttl)

	code := sender.codes["9876543210"]
	require.Len(t, code, 6)

	rec, err := st.GetOTP(ctx, "9876543210")
	require.NoError(t, err)
	assert.NotEqual(t, code, rec.CodeHash)
	assert.Equal(t, HashKey(code), rec.CodeHash)
	assert.True(t, rec.ExpiresAt.Equal(otpNow.Add(5*time.Minute)))

	require.NoError(t, svc.Verify(ctx, "9876543210", code))

	err = svc.Verify(ctx, "9876543210", code)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestOTP_IssueRejectsBadPhone(t *testing.T) {
	svc, _, sender := newTestOTP(OTPConfig{})

	for _, phone := range []string{"", "12345", "5876543210", "98765432101", "98765abcde"} {
		_, err := svc.Issue(context.Background(), phone)
		require.ErrorIs(t, err, apperr.ErrValidation, phone)
		assert.Contains(t, apperr.As(err).Fields, "phone")
	}
	assert.Empty(t, sender.codes)
}

func TestOTP_FixedCode(t *testing.T) {
	svc, _, sender := newTestOTP(OTPConfig{FixedCode: "123456"})
	ctx := context.Background()

	_, err := svc.Issue(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, "123456", sender.codes["9876543210"])
	assert.NoError(t, svc.Verify(ctx, "9876543210", "123456"))
}

func TestOTP_Expired(t *testing.T) {
	svc, st, _ := newTestOTP(OTPConfig{TTL: time.Minute, FixedCode: "123456"})
	ctx := context.Background()

	_, err := svc.Issue(ctx, "9876543210")
	require.NoError(t, err)

	svc.now = func() time.Time { return otpNow.Add(2 * time.Minute) }
	err = svc.Verify(ctx, "9876543210", "123456")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = st.GetOTP(ctx, "9876543210")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOTP_AttemptLimit(t *testing.T) {
	svc, st, _ := newTestOTP(OTPConfig{MaxAttempts: 3, FixedCode: "123456"})
	ctx := context.Background()

	_, err := svc.Issue(ctx, "9876543210")
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		assert.ErrorIs(t, svc.Verify(ctx, "9876543210", "000000"), apperr.ErrValidation)
		rec, err := st.GetOTP(ctx, "9876543210")
		require.NoError(t, err)
		assert.Equal(t, i, rec.Attempts)
	}

	// The right code no longer helps once the attempts are used up.
	assert.ErrorIs(t, svc.Verify(ctx, "9876543210", "123456"), apperr.ErrValidation)
	_, err = st.GetOTP(ctx, "9876543210")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOTP_ReissueResetsAttempts(t *testing.T) {
	svc, st, _ := newTestOTP(OTPConfig{FixedCode: "123456"})
	ctx := context.Background()

	_, err := svc.Issue(ctx, "9876543210")
	require.NoError(t, err)
	require.Error(t, svc.Verify(ctx, "9876543210", "000000"))

	_, err = svc.Issue(ctx, "9876543210")
	require.NoError(t, err)
	rec, err := st.GetOTP(ctx, "9876543210")
	require.NoError(t, err)
	assert.Zero(t, rec.Attempts)
}

func TestOTP_SendFailure(t *testing.T) {
	svc, _, sender := newTestOTP(OTPConfig{})
	sender.err = errors.New("gateway down")

	_, err := svc.Issue(context.Background(), "9876543210")
	require.Error(t, err)
	assert.Equal(t, apperr.KindServerFault, apperr.As(err).Kind)
}
