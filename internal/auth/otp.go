package auth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/logistics-tracker/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

const (
	pendingKey = "otp-pending"
	// maxAttempts wrong codes discard a pending verification.
	maxAttempts = 5
)

// Result is the outcome of an OTP step. Failures are values, not errors.
type Result struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	UserID    string `json:"userId,omitempty"`
	Phone     string `json:"phoneNumber,omitempty"`
	ExpiresAt int64  `json:"expiresAt,omitempty"` // epoch milliseconds
}

func failure(msg string) Result {
	return Result{Success: false, Error: msg}
}

// OTPSender delivers a verification code.
type OTPSender interface {
	SendOTP(ctx context.Context, phone, code string) error
}

// LogSender writes codes to the log instead of sending an SMS.
type LogSender struct{}

func (LogSender) SendOTP(_ context.Context, phone, _ string) error {
	log.WithField("phone", phone).Info("OTP issued (delivery mocked)")
	return nil
}

// pending is the verification waiting on a phone number.
type pending struct {
	Hash      string `json:"hash,omitempty"`
	ExpiresAt int64  `json:"expiresAt,omitempty"`
	Attempts  int    `json:"attempts,omitempty"`
}

// Service handles phone OTP login and device tokens.
type Service struct {
	jwtSecret  []byte
	sessionTTL time.Duration
	devMode    bool
	devCode    string
	otpTTL     time.Duration
	pending    storage.Store
	sender     OTPSender
	now        func() time.Time
}

// NewService creates a new authentication service. Pending verifications are
// kept in kv so any server instance can complete them.
func NewService(opts Options, kv storage.Store, sender OTPSender) *Service {
	if opts.JWTSecret == "" {
		opts.JWTSecret = defaultSecret
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if opts.DevCode == "" {
		opts.DevCode = defaultDevCode
	}
	if opts.OTPTTL <= 0 {
		opts.OTPTTL = defaultOTPTTL
	}
	if sender == nil {
		sender = LogSender{}
	}
	return &Service{
		jwtSecret:  []byte(opts.JWTSecret),
		sessionTTL: opts.SessionTTL,
		devMode:    opts.DevMode,
		devCode:    opts.DevCode,
		otpTTL:     opts.OTPTTL,
		pending:    kv,
		sender:     sender,
		now:        time.Now,
	}
}

// SessionTTL is how long a verified session stays valid.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

// NormalizePhone prefixes the number with '+' when missing.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+" + phone
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// SendOTP starts a verification for phone.
func (s *Service) SendOTP(ctx context.Context, phone string) Result {
	if strings.TrimSpace(phone) == "" {
		return failure("Phone number is required")
	}
	phone = NormalizePhone(phone)

	var p pending
	if s.devMode {
		log.WithField("phone", phone).Debugf("Dev mode: use OTP %s to verify", s.devCode)
	} else {
		code, err := randomCode()
		if err != nil {
			log.WithError(err).Error("Failed to generate OTP")
			return failure("Failed to send OTP")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if err != nil {
			log.WithError(err).Error("Failed to hash OTP")
			return failure("Failed to send OTP")
		}
		p = pending{Hash: string(hash), ExpiresAt: s.now().Add(s.otpTTL).UnixMilli()}
		if err := s.sender.SendOTP(ctx, phone, code); err != nil {
			log.WithError(err).WithField("phone", phone).Error("Failed to deliver OTP")
			return failure("Failed to send OTP")
		}
	}

	data, err := json.Marshal(p)
	if err != nil {
		return failure("Failed to send OTP")
	}
	if err := s.pending.Set(ctx, storage.Key(phone, pendingKey), data); err != nil {
		log.WithError(err).WithField("phone", phone).Error("Failed to store pending OTP")
		return failure("Failed to send OTP")
	}
	return Result{Success: true, Phone: phone}
}

// errAbort ends a pending update without writing.
var errAbort = errors.New("abort pending update")

// VerifyOTP completes the verification started by SendOTP. On success the
// result carries a new user id and the session expiry. Each wrong code counts
// against the pending verification, which is discarded after maxAttempts.
func (s *Service) VerifyOTP(ctx context.Context, phone, code string) Result {
	phone = NormalizePhone(phone)
	key := storage.Key(phone, pendingKey)

	var (
		res     Result
		discard bool
	)
	err := s.pending.Update(ctx, key, func(current []byte, found bool) ([]byte, error) {
		res, discard = Result{}, false
		if !found {
			res = failure("Please request OTP first")
			return nil, errAbort
		}
		var p pending
		if err := json.Unmarshal(current, &p); err != nil {
			return nil, fmt.Errorf("decode pending OTP: %w", err)
		}
		res, discard = s.check(p, code)
		if res.Success || discard {
			return nil, errAbort
		}
		p.Attempts++
		if p.Attempts >= maxAttempts {
			res, discard = failure("Too many attempts. Please request a new OTP"), true
			return nil, errAbort
		}
		return json.Marshal(p)
	})
	if err != nil && !errors.Is(err, errAbort) {
		log.WithError(err).WithField("phone", phone).Error("Failed to load pending OTP")
		return failure("Failed to verify OTP")
	}

	if discard {
		if err := s.pending.Delete(ctx, key); err != nil {
			log.WithError(err).WithField("phone", phone).Warn("Failed to clear pending OTP")
		}
	}
	if !res.Success {
		return res
	}
	now := s.now()
	return Result{
		Success:   true,
		UserID:    fmt.Sprintf("dev_%d", now.UnixMilli()),
		Phone:     phone,
		ExpiresAt: now.Add(s.sessionTTL).UnixMilli(),
	}
}

// check compares code with the pending verification. discard reports that
// the verification is spent, by success or by expiry.
func (s *Service) check(p pending, code string) (Result, bool) {
	if s.devMode {
		if code != s.devCode {
			return failure(fmt.Sprintf("Invalid OTP. Use %s for testing", s.devCode)), false
		}
		return Result{Success: true}, true
	}
	if p.Hash == "" {
		return failure("Please request OTP first"), false
	}
	if s.now().UnixMilli() >= p.ExpiresAt {
		return failure("OTP expired. Please request a new one"), true
	}
	if bcrypt.CompareHashAndPassword([]byte(p.Hash), []byte(code)) != nil {
		return failure("Invalid OTP"), false
	}
	return Result{Success: true}, true
}
