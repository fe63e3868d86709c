package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/provisioning-assistant/internal/auth"
	"github.com/spec-kit/provisioning-assistant/internal/config"
	"github.com/spec-kit/provisioning-assistant/internal/domain"
	"github.com/spec-kit/provisioning-assistant/internal/repository"
)

// AuthService coordinates approver registration and login flows.
type AuthService struct {
	approvers  repository.ApproverRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, approvers repository.ApproverRepository) *AuthService {
	return &AuthService{
		approvers:  approvers,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
	}
}

// RegisterApprover creates or replaces an approver account.
func (s *AuthService) RegisterApprover(ctx context.Context, email, name, password string) (*domain.Approver, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid approver email %q", email)
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = email
	}
	approver := &domain.Approver{
		Email:        email,
		DisplayName:  strings.TrimSpace(name),
		PasswordHash: hash,
	}
	if err := s.approvers.Upsert(ctx, approver); err != nil {
		return nil, err
	}
	return approver, nil
}

// Login authenticates an approver and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Approver, string, time.Time, error) {
	approver, err := s.approvers.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrApproverNotFound) {
			return nil, "", time.Time{}, auth.ErrInvalidCredentials
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(approver.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, err
	}
	token, exp, err := s.tokenMgr.GenerateToken(approver)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return approver, token, exp, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
