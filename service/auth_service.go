package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"customer-auth/pkg/clock"
	"customer-auth/pkg/hash"
	"customer-auth/pkg/logger"
	"customer-auth/repository"
)

var (
	ErrTokenRequired = errors.New("bearer token is required")
	ErrTokenInvalid  = errors.New("token is invalid or expired")
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value
func BearerToken(authorization string) (string, error) {
	scheme, token, found := strings.Cut(strings.TrimSpace(authorization), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrTokenRequired
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrTokenRequired
	}
	return token, nil
}

// AuthService interface defines session operations on issued tokens
type AuthService interface {
	Logout(ctx context.Context, authorization string) error
	LogoutAll(ctx context.Context, authorization string) (int64, error)
	Authenticate(ctx context.Context, authorization string) (*CustomerClaims, error)
}

// authService implements AuthService interface
type authService struct {
	sessions   repository.SessionRepository
	jwtService JWTService
	clock      clock.Clocker
	logger     *logger.Logger
}

// NewAuthService creates a new auth service instance
func NewAuthService(sessions repository.SessionRepository, jwtService JWTService, clk clock.Clocker, logger *logger.Logger) AuthService {
	return &authService{
		sessions:   sessions,
		jwtService: jwtService,
		clock:      clk,
		logger:     logger.Named("auth"),
	}
}

// Logout deletes the session of the presented token. A token whose session is
// already gone still logs out successfully.
func (s *authService) Logout(ctx context.Context, authorization string) error {
	token, claims, err := s.parse(authorization)
	if err != nil {
		return err
	}

	tokenHash := hash.SHA256Hex(token)
	deleted, err := s.sessions.DeleteByTokenHash(ctx, tokenHash)
	if err != nil {
		s.logger.Errorw("Failed to delete session", "customer_id", claims.Subject, "error", err)
		return fmt.Errorf("failed to logout: %w", err)
	}

	s.logger.Infow("Customer logged out",
		"customer_id", claims.Subject,
		"token_hash_prefix", tokenHash[:8],
		"sessions_deleted", deleted)

	return nil
}

// LogoutAll deletes every session of the token's customer
func (s *authService) LogoutAll(ctx context.Context, authorization string) (int64, error) {
	_, claims, err := s.parse(authorization)
	if err != nil {
		return 0, err
	}

	customerID, err := claims.CustomerID()
	if err != nil {
		s.logger.Warnw("Token subject is not a customer id", "subject", claims.Subject)
		return 0, ErrTokenInvalid
	}

	deleted, err := s.sessions.DeleteByCustomerID(ctx, customerID)
	if err != nil {
		s.logger.Errorw("Failed to delete customer sessions", "customer_id", customerID, "error", err)
		return 0, fmt.Errorf("failed to logout from all devices: %w", err)
	}

	s.logger.Infow("Customer logged out from all devices", "customer_id", customerID, "sessions_deleted", deleted)
	return deleted, nil
}

// Authenticate accepts a token only while its session row is live
func (s *authService) Authenticate(ctx context.Context, authorization string) (*CustomerClaims, error) {
	token, claims, err := s.parse(authorization)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.GetByTokenHash(ctx, hash.SHA256Hex(token))
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Debugw("Token has no session", "customer_id", claims.Subject)
		return nil, ErrTokenInvalid
	}
	if err != nil {
		s.logger.Errorw("Failed to load session", "customer_id", claims.Subject, "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if s.clock.Now().After(session.ExpiresAt) {
		return nil, ErrTokenInvalid
	}

	customerID, err := claims.CustomerID()
	if err != nil || customerID != session.CustomerID {
		s.logger.Warnw("Token subject does not match session", "subject", claims.Subject, "session_customer_id", session.CustomerID)
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

func (s *authService) parse(authorization string) (string, *CustomerClaims, error) {
	token, err := BearerToken(authorization)
	if err != nil {
		return "", nil, err
	}

	claims, err := s.jwtService.ValidateToken(token)
	if err != nil {
		s.logger.Debugw("Rejected token", "error", err)
		return "", nil, ErrTokenInvalid
	}

	return token, claims, nil
}
