package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"customer-auth/config"
	"customer-auth/delivery"
	"customer-auth/entity"
	"customer-auth/pkg/clock"
	"customer-auth/pkg/goroutine"
	"customer-auth/pkg/hash"
	"customer-auth/pkg/logger"
	"customer-auth/repository"
)

// deliveryTimeout bounds a single background delivery attempt
const deliveryTimeout = 10 * time.Second

var (
	ErrPhoneRequired       = errors.New("phone is required")
	ErrPhoneAndOTPRequired = errors.New("phone and otp are required")
	ErrPhoneNotWhitelisted = errors.New("phone number is not whitelisted")
	ErrRateLimited         = errors.New("too many OTP requests")
)

// errRollback aborts a verification transaction without surfacing as a failure
var errRollback = errors.New("rollback")

// VerifyStatus is the outcome of a verification attempt
type VerifyStatus int

const (
	VerifyOK VerifyStatus = iota
	VerifyExpired
	VerifyInvalid
	VerifyTokenFailed
	VerifyCreateFailed
)

func (s VerifyStatus) String() string {
	switch s {
	case VerifyOK:
		return "ok"
	case VerifyExpired:
		return "expired"
	case VerifyInvalid:
		return "invalid"
	case VerifyTokenFailed:
		return "token_failed"
	case VerifyCreateFailed:
		return "create_failed"
	default:
		return fmt.Sprintf("VerifyStatus(%d)", int(s))
	}
}

// VerifyResult carries the token and customer when Status is VerifyOK
type VerifyResult struct {
	Status   VerifyStatus
	Token    string
	Customer *entity.Customer
}

// OTPService interface defines OTP business operations
type OTPService interface {
	SendOTP(ctx context.Context, phoneNumber string) error
	VerifyOTP(ctx context.Context, phoneNumber, code string) (*VerifyResult, error)
	CleanupExpiredOTPs(ctx context.Context) (int64, error)
}

// otpService implements OTPService interface
type otpService struct {
	store         repository.Transactor
	repos         *repository.Repositories
	rateLimitRepo repository.RateLimitRepository
	jwtService    JWTService
	sender        delivery.Sender
	tasks         *goroutine.Manager
	hasher        *hash.HMACSHA256
	clock         clock.Clocker
	cfg           *config.Config
	logger        *logger.Logger
}

// NewOTPService creates a new OTP service instance. rateLimitRepo may be nil
// to disable the per-phone issuance limit.
func NewOTPService(
	store repository.Transactor,
	repos *repository.Repositories,
	rateLimitRepo repository.RateLimitRepository,
	jwtService JWTService,
	sender delivery.Sender,
	tasks *goroutine.Manager,
	clk clock.Clocker,
	cfg *config.Config,
	logger *logger.Logger,
) OTPService {
	return &otpService{
		store:         store,
		repos:         repos,
		rateLimitRepo: rateLimitRepo,
		jwtService:    jwtService,
		sender:        sender,
		tasks:         tasks,
		hasher:        hash.NewHMACSHA256(cfg.OTP.HashSecret),
		clock:         clk,
		cfg:           cfg,
		logger:        logger.Named("otp"),
	}
}

// SendOTP issues a fresh code for a whitelisted phone number and hands it to
// the delivery channel in the background
func (s *otpService) SendOTP(ctx context.Context, phoneNumber string) error {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return ErrPhoneRequired
	}

	allowed, err := s.repos.Whitelist.Exists(ctx, phoneNumber)
	if err != nil {
		s.logger.Errorw("Failed to check phone whitelist", "phone_number", phoneNumber, "error", err)
		return fmt.Errorf("failed to check phone whitelist: %w", err)
	}
	if !allowed {
		s.logger.Warnw("OTP requested for phone outside whitelist", "phone_number", phoneNumber)
		return ErrPhoneNotWhitelisted
	}

	if err := s.checkRateLimit(ctx, phoneNumber); err != nil {
		return err
	}

	code, err := s.generateOTPCode()
	if err != nil {
		s.logger.Errorw("Failed to generate OTP code", "error", err)
		return fmt.Errorf("failed to generate OTP code: %w", err)
	}

	now := s.clock.Now()
	otp := &entity.OTP{
		PhoneNumber: phoneNumber,
		CodeHash:    s.hashCode(phoneNumber, code),
		ExpiresAt:   now.Add(s.cfg.OTP.ExpirationTime),
		CreatedAt:   now,
	}

	if err := s.repos.OTP.Upsert(ctx, otp); err != nil {
		s.logger.Errorw("Failed to store OTP", "phone_number", phoneNumber, "error", err)
		return fmt.Errorf("failed to store OTP: %w", err)
	}

	s.dispatch(ctx, phoneNumber, code)

	s.logger.Infow("OTP generated", "phone_number", phoneNumber, "expires_at", otp.ExpiresAt)
	return nil
}

// VerifyOTP consumes the code of phoneNumber and logs the customer in. All
// reads and writes happen in one transaction. Expected failures are reported
// through VerifyResult.Status; the error is only set for store failures.
func (s *otpService) VerifyOTP(ctx context.Context, phoneNumber, code string) (*VerifyResult, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	code = strings.TrimSpace(code)
	if phoneNumber == "" || code == "" {
		return nil, ErrPhoneAndOTPRequired
	}

	var result *VerifyResult
	err := s.store.WithinTx(ctx, func(repos *repository.Repositories) error {
		res, err := s.verify(ctx, repos, phoneNumber, code)
		if err != nil {
			return err
		}
		result = res
		// A code must stay usable when the login could not be completed
		if res.Status == VerifyTokenFailed || res.Status == VerifyCreateFailed {
			return errRollback
		}
		return nil
	})
	if err != nil && !errors.Is(err, errRollback) {
		s.logger.Errorw("OTP verification failed", "phone_number", phoneNumber, "error", err)
		return nil, fmt.Errorf("failed to verify OTP: %w", err)
	}

	switch result.Status {
	case VerifyOK:
		s.logger.Infow("Customer logged in", "customer_id", result.Customer.ID, "phone_number", phoneNumber)
	case VerifyExpired, VerifyInvalid:
		s.logger.Warnw("OTP rejected", "phone_number", phoneNumber, "status", result.Status.String())
	default:
		s.logger.Errorw("Login could not be completed", "phone_number", phoneNumber, "status", result.Status.String())
	}

	return result, nil
}

func (s *otpService) verify(ctx context.Context, repos *repository.Repositories, phoneNumber, code string) (*VerifyResult, error) {
	otp, err := repos.OTP.GetByPhoneNumber(ctx, phoneNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return &VerifyResult{Status: VerifyInvalid}, nil
	}
	if err != nil {
		return nil, err
	}
	if otp.IsUsed {
		return &VerifyResult{Status: VerifyInvalid}, nil
	}

	now := s.clock.Now()
	if otp.IsExpired(now) {
		if _, err := repos.OTP.Delete(ctx, phoneNumber, otp.CodeHash); err != nil {
			return nil, err
		}
		return &VerifyResult{Status: VerifyExpired}, nil
	}

	if !s.hasher.Verify(otp.CodeHash, otpHashInput(phoneNumber, code)) {
		return &VerifyResult{Status: VerifyInvalid}, nil
	}

	consumed, err := repos.OTP.MarkAsUsed(ctx, phoneNumber, otp.CodeHash, now)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return &VerifyResult{Status: VerifyInvalid}, nil
	}

	customer, created, err := repos.Customer.GetOrCreate(ctx, &entity.Customer{
		Name:        entity.DefaultCustomerName(phoneNumber),
		PhoneNumber: phoneNumber,
	})
	if err != nil {
		s.logger.Errorw("Failed to get or create customer", "phone_number", phoneNumber, "error", err)
		return &VerifyResult{Status: VerifyCreateFailed}, nil
	}
	if created {
		s.logger.Infow("New customer registered", "customer_id", customer.ID, "phone_number", phoneNumber)
	}

	token, err := s.jwtService.GenerateToken(customer)
	if err != nil {
		return &VerifyResult{Status: VerifyTokenFailed}, nil
	}
	expiresAt, err := s.jwtService.ExpiresAt(token)
	if err != nil {
		s.logger.Errorw("Failed to read token expiry", "customer_id", customer.ID, "error", err)
		return &VerifyResult{Status: VerifyTokenFailed}, nil
	}

	session := &entity.Session{
		CustomerID: customer.ID,
		TokenHash:  hash.SHA256Hex(token),
		ExpiresAt:  expiresAt,
		CreatedAt:  now,
	}
	if err := repos.Session.Create(ctx, session); err != nil {
		return nil, err
	}

	return &VerifyResult{Status: VerifyOK, Token: token, Customer: customer}, nil
}

// CleanupExpiredOTPs removes consumed and expired codes
func (s *otpService) CleanupExpiredOTPs(ctx context.Context) (int64, error) {
	deleted, err := s.repos.OTP.DeleteUsedOrExpired(ctx, s.clock.Now())
	if err != nil {
		s.logger.Errorw("Failed to delete expired OTPs", "error", err)
		return 0, fmt.Errorf("failed to delete expired OTPs: %w", err)
	}

	if deleted > 0 {
		s.logger.Infow("Deleted expired OTPs", "count", deleted)
	}

	return deleted, nil
}

func (s *otpService) checkRateLimit(ctx context.Context, phoneNumber string) error {
	if s.rateLimitRepo == nil || s.cfg.RateLimit.MaxRequests <= 0 {
		return nil
	}

	info, err := s.rateLimitRepo.Hit(ctx, phoneNumber, s.cfg.RateLimit.WindowDuration)
	if err != nil {
		s.logger.Errorw("Failed to check rate limit", "phone_number", phoneNumber, "error", err)
		return fmt.Errorf("failed to check rate limit: %w", err)
	}

	if info.RequestCount > int64(s.cfg.RateLimit.MaxRequests) {
		s.logger.Warnw("OTP rate limit exceeded", "phone_number", phoneNumber, "request_count", info.RequestCount)
		return fmt.Errorf("%w: maximum %d requests per %v, retry in %v",
			ErrRateLimited, s.cfg.RateLimit.MaxRequests, s.cfg.RateLimit.WindowDuration, info.ResetIn.Round(time.Second))
	}

	return nil
}

// dispatch delivers the code without blocking the request. Failures are
// logged only: the stored code stays valid and the customer may resend.
func (s *otpService) dispatch(ctx context.Context, phoneNumber, code string) {
	scheduled := s.tasks.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
		defer cancel()

		if err := s.sender.Send(ctx, phoneNumber, code); err != nil {
			s.logger.Errorw("Failed to deliver OTP", "phone_number", phoneNumber, "error", err)
		}
		return nil
	})
	if !scheduled {
		s.logger.Errorw("OTP delivery not scheduled", "phone_number", phoneNumber)
	}
}

// generateOTPCode generates a random OTP code
func (s *otpService) generateOTPCode() (string, error) {
	maxValue := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(s.cfg.OTP.Length)), nil)

	randomNumber, err := rand.Int(rand.Reader, maxValue)
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}

	// Format with leading zeros
	return fmt.Sprintf("%0*d", s.cfg.OTP.Length, randomNumber), nil
}

func (s *otpService) hashCode(phoneNumber, code string) string {
	return s.hasher.Hash(otpHashInput(phoneNumber, code))
}

func otpHashInput(phoneNumber, code string) string {
	return phoneNumber + ":" + code
}
