package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/proctorly/proctorly-backend/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// Claims is the exam-scoped JWT payload carried on API and WS requests.
type Claims struct {
	ExamID      string `json:"exam_id"`
	CandidateID string `json:"candidate_id"`
	jwt.RegisteredClaims
}

// AuthService issues and validates exam tokens and checks the proctor
// access code. Authentication protocol details beyond this stay outside
// the exam core.
type AuthService struct {
	secret         []byte
	expiry         time.Duration
	accessCodeHash string
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		secret:         []byte(cfg.JWTSecret),
		expiry:         cfg.JWTExpiry,
		accessCodeHash: cfg.AccessCodeHash,
	}
}

// VerifyAccessCode compares the supplied code against the configured
// bcrypt hash. An empty configured hash disables the check (dev mode).
func (s *AuthService) VerifyAccessCode(code string) error {
	if s.accessCodeHash == "" {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.accessCodeHash), []byte(code)); err != nil {
		return errors.New("invalid access code")
	}
	return nil
}

// IssueToken mints an exam-scoped token for the candidate.
func (s *AuthService) IssueToken(examID, candidateID string) (string, error) {
	now := time.Now()
	claims := Claims{
		ExamID:      examID,
		CandidateID: candidateID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies an exam token.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
