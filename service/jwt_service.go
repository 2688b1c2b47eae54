package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"customer-auth/config"
	"customer-auth/entity"
	"customer-auth/pkg/clock"
	"customer-auth/pkg/logger"
	"customer-auth/pkg/uid"

	"github.com/golang-jwt/jwt/v5"
)

// CustomerTokenType is the typ claim of tokens issued to customers
const CustomerTokenType = "customer"

var (
	// ErrInvalidTokenType is returned for a well-signed token that was not issued to a customer
	ErrInvalidTokenType = errors.New("token is not a customer token")
	// ErrMissingExpiry is returned when a token carries no exp claim
	ErrMissingExpiry = errors.New("token has no expiration")
)

// JWTService interface defines JWT operations
type JWTService interface {
	GenerateToken(customer *entity.Customer) (string, error)
	ExpiresAt(tokenString string) (time.Time, error)
	ValidateToken(tokenString string) (*CustomerClaims, error)
}

// CustomerClaims represents the JWT claims of a customer token
type CustomerClaims struct {
	Phone string `json:"phone"`
	Type  string `json:"typ"`
	jwt.RegisteredClaims
}

// CustomerID returns the customer id carried in the subject
func (c *CustomerClaims) CustomerID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject %q: %w", c.Subject, err)
	}
	return id, nil
}

// jwtService implements JWTService interface
type jwtService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  clock.Clocker
	uuid   *uid.UUID
	logger *logger.Logger
}

// NewJWTService creates a new JWT service instance. It refuses to run a
// production environment with the placeholder secret.
func NewJWTService(cfg *config.Config, clk clock.Clocker, logger *logger.Logger) (JWTService, error) {
	if cfg.IsProduction() && (cfg.JWT.Secret == "" || cfg.JWT.Secret == config.DefaultJWTSecret) {
		return nil, config.ErrInsecureJWTSecret
	}

	return &jwtService{
		secret: []byte(cfg.JWT.Secret),
		issuer: cfg.JWT.Issuer,
		ttl:    cfg.JWT.ExpirationTime,
		clock:  clk,
		uuid:   uid.NewUUID(),
		logger: logger.Named("jwt"),
	}, nil
}

// GenerateToken signs a customer token
func (s *jwtService) GenerateToken(customer *entity.Customer) (string, error) {
	now := s.clock.Now()

	claims := CustomerClaims{
		Phone: customer.PhoneNumber,
		Type:  CustomerTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.uuid.Generate(),
			Subject:   strconv.FormatInt(customer.ID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		s.logger.Errorw("Failed to sign JWT token", "customer_id", customer.ID, "error", err)
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

// ExpiresAt reads the exp claim of a token this service just signed
func (s *jwtService) ExpiresAt(tokenString string) (time.Time, error) {
	var claims CustomerClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrMissingExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// ValidateToken verifies signature, expiry and token type
func (s *jwtService) ValidateToken(tokenString string) (*CustomerClaims, error) {
	var claims CustomerClaims

	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(token *jwt.Token) (any, error) {
			// Verify signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if claims.Type != CustomerTokenType {
		return nil, ErrInvalidTokenType
	}

	return &claims, nil
}
