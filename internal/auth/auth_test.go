package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/logistics-tracker/internal/models"
	"github.com/ukydev/logistics-tracker/internal/storage"
)

// MockSender captures delivered codes.
type MockSender struct {
	mock.Mock
	last string
}

func (m *MockSender) SendOTP(ctx context.Context, phone, code string) error {
	m.last = code
	return m.Called(ctx, phone, mock.Anything).Error(0)
}

func newTestService(t *testing.T, opts Options, sender OTPSender) *Service {
	kv, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return NewService(opts, kv, sender)
}

func TestNewService_Defaults(t *testing.T) {
	service := newTestService(t, Options{}, nil)
	assert.NotEmpty(t, service.jwtSecret)
	assert.Equal(t, 7*24*time.Hour, service.SessionTTL())
	assert.Equal(t, "123456", service.devCode)
	assert.Equal(t, 5*time.Minute, service.otpTTL)
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+919876512345", NormalizePhone("919876512345"))
	assert.Equal(t, "+919876512345", NormalizePhone("+919876512345"))
	assert.Equal(t, "+15550103", NormalizePhone(" 15550103 "))
}

func TestDevOTP_Flow(t *testing.T) {
	service := newTestService(t, Options{DevMode: true}, nil)
	now := time.UnixMilli(1720000000000)
	service.now = func() time.Time { return now }
	ctx := context.Background()

	res := service.VerifyOTP(ctx, "919876512345", "123456")
	assert.False(t, res.Success)
	assert.Equal(t, "Please request OTP first", res.Error)

	sent := service.SendOTP(ctx, "919876512345")
	require.True(t, sent.Success)
	assert.Equal(t, "+919876512345", sent.Phone)

	res = service.VerifyOTP(ctx, "+919876512345", "000000")
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid OTP. Use 123456 for testing", res.Error)

	res = service.VerifyOTP(ctx, "+919876512345", "123456")
	require.True(t, res.Success)
	assert.Equal(t, "dev_1720000000000", res.UserID)
	assert.Equal(t, now.Add(7*24*time.Hour).UnixMilli(), res.ExpiresAt)

	res = service.VerifyOTP(ctx, "+919876512345", "123456")
	assert.Equal(t, "Please request OTP first", res.Error)
}

func TestSendOTP_RequiresPhone(t *testing.T) {
	service := newTestService(t, Options{DevMode: true}, nil)
	res := service.SendOTP(context.Background(), "  ")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestProductionOTP_Flow(t *testing.T) {
	sender := new(MockSender)
	sender.On("SendOTP", mock.Anything, "+15550103", mock.Anything).Return(nil)
	service := newTestService(t, Options{}, sender)
	ctx := context.Background()

	require.True(t, service.SendOTP(ctx, "15550103").Success)
	require.Len(t, sender.last, 6)

	wrong := "000000"
	if sender.last == wrong {
		wrong = "111111"
	}
	res := service.VerifyOTP(ctx, "15550103", wrong)
	assert.Equal(t, "Invalid OTP", res.Error)

	res = service.VerifyOTP(ctx, "15550103", sender.last)
	assert.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.UserID, "dev_"))
	sender.AssertExpectations(t)
}

func TestProductionOTP_Expires(t *testing.T) {
	sender := new(MockSender)
	sender.On("SendOTP", mock.Anything, "+15550103", mock.Anything).Return(nil)
	service := newTestService(t, Options{OTPTTL: time.Minute}, sender)
	now := time.Now()
	service.now = func() time.Time { return now }
	ctx := context.Background()

	require.True(t, service.SendOTP(ctx, "+15550103").Success)
	now = now.Add(2 * time.Minute)

	res := service.VerifyOTP(ctx, "+15550103", sender.last)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "expired")

	res = service.VerifyOTP(ctx, "+15550103", sender.last)
	assert.Equal(t, "Please request OTP first", res.Error)
}

func TestProductionOTP_LocksAfterRepeatedFailures(t *testing.T) {
	sender := new(MockSender)
	sender.On("SendOTP", mock.Anything, "+15550103", mock.Anything).Return(nil)
	service := newTestService(t, Options{}, sender)
	ctx := context.Background()

	require.True(t, service.SendOTP(ctx, "+15550103").Success)
	code := sender.last
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 1; i < maxAttempts; i++ {
		res := service.VerifyOTP(ctx, "+15550103", wrong)
		assert.Equal(t, "Invalid OTP", res.Error, "attempt %d", i)
	}
	res := service.VerifyOTP(ctx, "+15550103", wrong)
	assert.Equal(t, "Too many attempts. Please request a new OTP", res.Error)

	res = service.VerifyOTP(ctx, "+15550103", code)
	assert.False(t, res.Success)
	assert.Equal(t, "Please request OTP first", res.Error)

	require.True(t, service.SendOTP(ctx, "+15550103").Success)
	assert.True(t, service.VerifyOTP(ctx, "+15550103", sender.last).Success)
}

func TestProductionOTP_DeliveryFailure(t *testing.T) {
	sender := new(MockSender)
	sender.On("SendOTP", mock.Anything, "+15550103", mock.Anything).Return(assert.AnError)
	service := newTestService(t, Options{}, sender)

	res := service.SendOTP(context.Background(), "+15550103")
	assert.False(t, res.Success)
	assert.Equal(t, "Failed to send OTP", res.Error)
}

func TestService_TokenRoundTrip(t *testing.T) {
	service := newTestService(t, Options{JWTSecret: "test-secret"}, nil)
	expiry := time.Now().Add(7 * 24 * time.Hour)
	sess := models.Session{
		LoggedIn:   true,
		UserID:     "dev_1",
		Phone:      "+15550103",
		AuthExpiry: expiry.UnixMilli(),
		Role:       models.RoleFleet,
		Org:        &models.Org{ID: "org1", Name: "Apex Logistics"},
		Branch:     &models.Branch{ID: "b1", Name: "Mumbai Hub", OrgID: "org1"},
	}

	token, err := service.TokenForSession(sess)
	require.NoError(t, err)

	claims, err := service.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "dev_1", claims.UserID)
	assert.Equal(t, "+15550103", claims.Phone)
	assert.Equal(t, models.RoleFleet, claims.Role)
	assert.Equal(t, "org1", claims.OrgID)
	assert.Equal(t, "b1", claims.BranchID)
	assert.Equal(t, expiry.Unix(), claims.Exp)
}

func TestService_ValidateToken_Failures(t *testing.T) {
	service := newTestService(t, Options{JWTSecret: "test-secret"}, nil)

	_, err := service.ValidateToken("invalid-token")
	assert.Equal(t, ErrInvalidToken, err)

	expired, err := service.GenerateToken(models.Claims{UserID: "dev_1", Exp: time.Now().Add(-time.Hour).Unix()})
	require.NoError(t, err)
	_, err = service.ValidateToken(expired)
	assert.Equal(t, ErrExpiredToken, err)

	other := newTestService(t, Options{JWTSecret: "other-secret"}, nil)
	foreign, err := other.GenerateToken(models.Claims{UserID: "dev_1", Exp: time.Now().Add(time.Hour).Unix()})
	require.NoError(t, err)
	_, err = service.ValidateToken(foreign)
	assert.Equal(t, ErrInvalidToken, err)

	anonymous, err := service.GenerateToken(models.Claims{Exp: time.Now().Add(time.Hour).Unix()})
	require.NoError(t, err)
	_, err = service.ValidateToken(anonymous)
	assert.Equal(t, ErrInvalidToken, err)
}
