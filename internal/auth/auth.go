package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ukydev/logistics-tracker/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Options configures a Service.
type Options struct {
	JWTSecret  string
	SessionTTL time.Duration
	DevMode    bool
	DevCode    string
	OTPTTL     time.Duration
}

const (
	defaultSecret     = "default-secret-key-change-in-production"
	defaultSessionTTL = 7 * 24 * time.Hour
	defaultDevCode    = "123456"
	defaultOTPTTL     = 5 * time.Minute
)

// GenerateToken signs claims. The token expires at claims.Exp (unix seconds).
func (s *Service) GenerateToken(claims models.Claims) (string, error) {
	mc := jwt.MapClaims{
		"user_id":   claims.UserID,
		"phone":     claims.Phone,
		"role":      string(claims.Role),
		"org_id":    claims.OrgID,
		"branch_id": claims.BranchID,
		"exp":       claims.Exp,
		"iat":       s.now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mc)
	return token.SignedString(s.jwtSecret)
}

// TokenForSession issues a token carrying the session's identity and selections.
// Its expiry is the session expiry.
func (s *Service) TokenForSession(sess models.Session) (string, error) {
	claims := models.Claims{
		UserID: sess.UserID,
		Phone:  sess.Phone,
		Role:   sess.Role,
		OrgID:  sess.OrgID(),
		Exp:    time.UnixMilli(sess.AuthExpiry).Unix(),
	}
	if sess.Branch != nil {
		claims.BranchID = sess.Branch.ID
	}
	return s.GenerateToken(claims)
}

// ValidateToken validates a JWT token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*models.Claims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, ErrInvalidToken
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}
	phone, _ := claims["phone"].(string)
	role, _ := claims["role"].(string)
	orgID, _ := claims["org_id"].(string)
	branchID, _ := claims["branch_id"].(string)

	return &models.Claims{
		UserID:   userID,
		Phone:    phone,
		Role:     models.Role(role),
		OrgID:    orgID,
		BranchID: branchID,
		Exp:      int64(exp),
	}, nil
}
