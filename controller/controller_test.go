package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"customer-auth/entity"
	"customer-auth/pkg/logger"
	"customer-auth/service"
	"customer-auth/validator"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOTPService struct {
	sendErr     error
	verifyRes   *service.VerifyResult
	verifyErr   error
	sentTo      string
	verifiedFor [2]string
}

func (f *fakeOTPService) SendOTP(ctx context.Context, phoneNumber string) error {
	f.sentTo = phoneNumber
	return f.sendErr
}

func (f *fakeOTPService) VerifyOTP(ctx context.Context, phoneNumber, code string) (*service.VerifyResult, error) {
	f.verifiedFor = [2]string{phoneNumber, code}
	return f.verifyRes, f.verifyErr
}

func (f *fakeOTPService) CleanupExpiredOTPs(ctx context.Context) (int64, error) {
	return 0, nil
}

type fakeAuthService struct {
	err    error
	header string
}

func (f *fakeAuthService) Logout(ctx context.Context, authorization string) error {
	f.header = authorization
	return f.err
}

func (f *fakeAuthService) LogoutAll(ctx context.Context, authorization string) (int64, error) {
	f.header = authorization
	return 2, f.err
}

func (f *fakeAuthService) Authenticate(ctx context.Context, authorization string) (*service.CustomerClaims, error) {
	return nil, f.err
}

type fakeCustomerService struct {
	customer *entity.CustomerResponse
	err      error
}

func (f *fakeCustomerService) GetByID(ctx context.Context, id int64) (*entity.CustomerResponse, error) {
	return f.customer, f.err
}

func newContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) entity.ErrorResponse {
	t.Helper()
	var body entity.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestOTPController_SendOTP(t *testing.T) {
	storeErr := errors.New("connection refused")

	testCases := []struct {
		name       string
		body       string
		sendErr    error
		wantStatus int
		wantCode   string
		wantErr    error
	}{
		{name: "sent", body: `{"phone":"+919876543210"}`, wantStatus: http.StatusOK},
		{name: "missing phone", body: `{}`, wantStatus: http.StatusBadRequest, wantCode: CodePhoneRequired},
		{name: "malformed body", body: `{"phone":`, wantStatus: http.StatusBadRequest, wantCode: CodePhoneRequired},
		{name: "blank phone", body: `{"phone":"  "}`, sendErr: service.ErrPhoneRequired, wantStatus: http.StatusBadRequest, wantCode: CodePhoneRequired},
		{name: "not whitelisted", body: `{"phone":"+15550000000"}`, sendErr: service.ErrPhoneNotWhitelisted, wantStatus: http.StatusForbidden, wantCode: CodePhoneNotWhitelisted},
		{name: "rate limited", body: `{"phone":"+919876543210"}`, sendErr: service.ErrRateLimited, wantStatus: http.StatusTooManyRequests, wantCode: CodeRateLimited},
		{name: "unexpected", body: `{"phone":"+919876543210"}`, sendErr: storeErr, wantErr: storeErr},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeOTPService{sendErr: tc.sendErr}
			ctrl := NewOTPController(svc, validator.New(), logger.NewNop())
			ctx, rec := newContext(http.MethodPost, "/api/v1/auth/otp/send", tc.body)

			err := ctrl.SendOTP(ctx)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, rec.Code)

			if tc.wantCode == "" {
				assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
				assert.Equal(t, "+919876543210", svc.sentTo)
				return
			}
			assert.Equal(t, tc.wantCode, decodeError(t, rec).Error)
		})
	}
}

func TestOTPController_VerifyOTP(t *testing.T) {
	customer := &entity.Customer{ID: 1, Name: "Customer 3210", PhoneNumber: "+919876543210"}

	testCases := []struct {
		name       string
		body       string
		result     *service.VerifyResult
		verifyErr  error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "verified",
			body:       `{"phone":"+919876543210","otp":"482913"}`,
			result:     &service.VerifyResult{Status: service.VerifyOK, Token: "jwt-token", Customer: customer},
			wantStatus: http.StatusOK,
		},
		{name: "missing otp", body: `{"phone":"+919876543210"}`, wantStatus: http.StatusBadRequest, wantCode: CodePhoneAndOTPRequired},
		{name: "malformed body", body: `[`, wantStatus: http.StatusBadRequest, wantCode: CodePhoneAndOTPRequired},
		{
			name:       "blank values",
			body:       `{"phone":" ","otp":" "}`,
			verifyErr:  service.ErrPhoneAndOTPRequired,
			wantStatus: http.StatusBadRequest,
			wantCode:   CodePhoneAndOTPRequired,
		},
		{
			name:       "expired",
			body:       `{"phone":"+919876543210","otp":"482913"}`,
			result:     &service.VerifyResult{Status: service.VerifyExpired},
			wantStatus: http.StatusUnauthorized,
			wantCode:   CodeOTPExpired,
		},
		{
			name:       "invalid",
			body:       `{"phone":"+919876543210","otp":"000000"}`,
			result:     &service.VerifyResult{Status: service.VerifyInvalid},
			wantStatus: http.StatusUnauthorized,
			wantCode:   CodeOTPInvalid,
		},
		{
			name:       "token failed",
			body:       `{"phone":"+919876543210","otp":"482913"}`,
			result:     &service.VerifyResult{Status: service.VerifyTokenFailed},
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeTokenCreateFailed,
		},
		{
			name:       "customer creation failed",
			body:       `{"phone":"+919876543210","otp":"482913"}`,
			result:     &service.VerifyResult{Status: service.VerifyCreateFailed},
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeLoginFailed,
		},
		{
			name:       "store failure",
			body:       `{"phone":"+919876543210","otp":"482913"}`,
			verifyErr:  errors.New("deadlock detected"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeLoginFailed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeOTPService{verifyRes: tc.result, verifyErr: tc.verifyErr}
			ctrl := NewOTPController(svc, validator.New(), logger.NewNop())
			ctx, rec := newContext(http.MethodPost, "/api/v1/auth/otp/verify", tc.body)

			require.NoError(t, ctrl.VerifyOTP(ctx))
			assert.Equal(t, tc.wantStatus, rec.Code)

			if tc.wantCode != "" {
				body := decodeError(t, rec)
				assert.Equal(t, tc.wantCode, body.Error)
				assert.NotContains(t, body.Details, "deadlock")
				return
			}

			var resp entity.AuthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "jwt-token", resp.Token)
			assert.Equal(t, int64(1), resp.Customer.ID)
			assert.Equal(t, "+919876543210", resp.Customer.PhoneNumber)
			assert.Equal(t, [2]string{"+919876543210", "482913"}, svc.verifiedFor)
		})
	}
}

func TestAuthController(t *testing.T) {
	dbErr := errors.New("db down")

	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantErr    error
	}{
		{name: "logged out", wantStatus: http.StatusNoContent},
		{name: "token required", err: service.ErrTokenRequired, wantStatus: http.StatusUnauthorized, wantCode: CodeTokenRequired},
		{name: "token invalid", err: service.ErrTokenInvalid, wantStatus: http.StatusUnauthorized, wantCode: CodeTokenInvalid},
		{name: "store failure", err: dbErr, wantErr: dbErr},
	}

	actions := map[string]func(*AuthController, echo.Context) error{
		"logout":     (*AuthController).Logout,
		"logout-all": (*AuthController).LogoutAll,
	}

	for action, handle := range actions {
		for _, tc := range testCases {
			t.Run(action+"/"+tc.name, func(t *testing.T) {
				svc := &fakeAuthService{err: tc.err}
				ctrl := NewAuthController(svc, logger.NewNop())
				ctx, rec := newContext(http.MethodPost, "/api/v1/auth/"+action, "")
				ctx.Request().Header.Set(echo.HeaderAuthorization, "Bearer abc.def.ghi")

				err := handle(ctrl, ctx)
				assert.Equal(t, "Bearer abc.def.ghi", svc.header)
				if tc.wantErr != nil {
					assert.ErrorIs(t, err, tc.wantErr)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tc.wantStatus, rec.Code)
				if tc.wantCode != "" {
					assert.Equal(t, tc.wantCode, decodeError(t, rec).Error)
				} else {
					assert.Empty(t, rec.Body.String())
				}
			})
		}
	}
}

func TestCustomerController_Me(t *testing.T) {
	profile := &entity.CustomerResponse{ID: 5, Name: "Customer 3210", PhoneNumber: "+919876543210"}

	t.Run("authenticated", func(t *testing.T) {
		ctrl := NewCustomerController(&fakeCustomerService{customer: profile}, logger.NewNop())
		ctx, rec := newContext(http.MethodGet, "/api/v1/customers/me", "")
		ctx.Set(CustomerIDKey, int64(5))

		require.NoError(t, ctrl.Me(ctx))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp entity.CustomerResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, profile.ID, resp.ID)
		assert.Equal(t, profile.PhoneNumber, resp.PhoneNumber)
		assert.Nil(t, resp.Email)
	})

	t.Run("no customer in context", func(t *testing.T) {
		ctrl := NewCustomerController(&fakeCustomerService{customer: profile}, logger.NewNop())
		ctx, rec := newContext(http.MethodGet, "/api/v1/customers/me", "")

		require.NoError(t, ctrl.Me(ctx))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("customer gone", func(t *testing.T) {
		ctrl := NewCustomerController(&fakeCustomerService{err: service.ErrCustomerNotFound}, logger.NewNop())
		ctx, rec := newContext(http.MethodGet, "/api/v1/customers/me", "")
		ctx.Set(CustomerIDKey, int64(5))

		require.NoError(t, ctrl.Me(ctx))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, CodeCustomerNotFound, decodeError(t, rec).Error)
	})
}

func TestHealthController(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		ctrl := NewHealthController(map[string]Check{
			"postgres": func(ctx context.Context) error { return nil },
			"redis":    func(ctx context.Context) error { return nil },
		}, logger.NewNop())
		ctx, rec := newContext(http.MethodGet, "/health", "")

		require.NoError(t, ctrl.HealthCheck(ctx))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, resp.Checks)
	})

	t.Run("dependency down", func(t *testing.T) {
		ctrl := NewHealthController(map[string]Check{
			"postgres": func(ctx context.Context) error { return nil },
			"redis":    func(ctx context.Context) error { return errors.New("dial tcp: refused") },
		}, logger.NewNop())
		ctx, rec := newContext(http.MethodGet, "/health", "")

		require.NoError(t, ctrl.HealthCheck(ctx))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "unhealthy", resp.Status)
		assert.Equal(t, "unavailable", resp.Checks["redis"])
		assert.NotContains(t, rec.Body.String(), "refused")
	})

	t.Run("service info", func(t *testing.T) {
		ctrl := NewHealthController(nil, logger.NewNop())
		ctx, rec := newContext(http.MethodGet, "/", "")

		require.NoError(t, ctrl.ServiceInfo(ctx))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "/swagger/index.html")
	})
}
