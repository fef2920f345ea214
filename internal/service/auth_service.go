package service

import (
	"context"
	"fmt"
	"strings"

	"peelojuice-staff/internal/model"
)

// API is the slice of the HTTP client the services depend on.
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body any, out any) error
}

const (
	pathLogin                = "/api/users/login/"
	pathRegister             = "/api/users/register/"
	pathVerifyOTP            = "/api/users/verify-otp/"
	pathResendOTP            = "/api/users/resend-otp/"
	pathPasswordResetRequest = "/api/users/password-reset/request/"
	pathPasswordResetVerify  = "/api/users/password-reset/verify/"
	pathPasswordResetConfirm = "/api/users/password-reset/confirm/"
)

// AuthService wraps the authentication endpoints. It checks argument shape
// only; credential and OTP validation belong to the server.
type AuthService struct {
	api API
}

func NewAuthService(api API) *AuthService {
	return &AuthService{api: api}
}

func (s *AuthService) Login(ctx context.Context, emailOrPhone string, password string) (model.LoginResponse, error) {
	if err := required("email or phone", emailOrPhone, "password", password); err != nil {
		return model.LoginResponse{}, err
	}

	var resp model.LoginResponse
	req := model.LoginRequest{EmailOrPhone: strings.TrimSpace(emailOrPhone), Password: password}
	if err := s.api.Post(ctx, pathLogin, req, &resp); err != nil {
		return model.LoginResponse{}, fmt.Errorf("login: %w", err)
	}
	return resp, nil
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.MessageResponse, error) {
	if err := required(
		"email", req.Email,
		"phone number", req.PhoneNumber,
		"password", req.Password,
		"confirm password", req.ConfirmPassword,
		"first name", req.FirstName,
		"last name", req.LastName,
	); err != nil {
		return model.MessageResponse{}, err
	}

	var resp model.MessageResponse
	if err := s.api.Post(ctx, pathRegister, req, &resp); err != nil {
		return model.MessageResponse{}, fmt.Errorf("register: %w", err)
	}
	return resp, nil
}

func (s *AuthService) VerifyOTP(ctx context.Context, email string, code string) (model.VerifyOTPResponse, error) {
	if err := required("email", email, "otp", code); err != nil {
		return model.VerifyOTPResponse{}, err
	}

	var resp model.VerifyOTPResponse
	req := model.VerifyOTPRequest{Email: strings.TrimSpace(email), OTP: strings.TrimSpace(code)}
	if err := s.api.Post(ctx, pathVerifyOTP, req, &resp); err != nil {
		return model.VerifyOTPResponse{}, fmt.Errorf("verify otp: %w", err)
	}
	return resp, nil
}

func (s *AuthService) ResendOTP(ctx context.Context, email string) (model.MessageResponse, error) {
	if err := required("email", email); err != nil {
		return model.MessageResponse{}, err
	}

	var resp model.MessageResponse
	if err := s.api.Post(ctx, pathResendOTP, model.ResendOTPRequest{Email: strings.TrimSpace(email)}, &resp); err != nil {
		return model.MessageResponse{}, fmt.Errorf("resend otp: %w", err)
	}
	return resp, nil
}

// RequestPasswordReset asks the server to send a reset OTP. When the server
// generated the OTP but could not deliver it, the returned *apierror.APIError
// reports PartialFailure.
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailOrPhone string) (model.MessageResponse, error) {
	if err := required("email or phone", emailOrPhone); err != nil {
		return model.MessageResponse{}, err
	}

	var resp model.MessageResponse
	req := model.PasswordResetRequest{EmailOrPhone: strings.TrimSpace(emailOrPhone)}
	if err := s.api.Post(ctx, pathPasswordResetRequest, req, &resp); err != nil {
		return model.MessageResponse{}, fmt.Errorf("request password reset: %w", err)
	}
	return resp, nil
}

func (s *AuthService) VerifyPasswordResetOTP(ctx context.Context, emailOrPhone string, code string) (model.MessageResponse, error) {
	if err := required("email or phone", emailOrPhone, "otp", code); err != nil {
		return model.MessageResponse{}, err
	}

	var resp model.MessageResponse
	req := model.PasswordResetVerifyRequest{EmailOrPhone: strings.TrimSpace(emailOrPhone), OTP: strings.TrimSpace(code)}
	if err := s.api.Post(ctx, pathPasswordResetVerify, req, &resp); err != nil {
		return model.MessageResponse{}, fmt.Errorf("verify password reset otp: %w", err)
	}
	return resp, nil
}

func (s *AuthService) ConfirmPasswordReset(ctx context.Context, emailOrPhone string, newPassword string) (model.MessageResponse, error) {
	if err := required("email or phone", emailOrPhone, "new password", newPassword); err != nil {
		return model.MessageResponse{}, err
	}

	var resp model.MessageResponse
	req := model.PasswordResetConfirmRequest{EmailOrPhone: strings.TrimSpace(emailOrPhone), NewPassword: newPassword}
	if err := s.api.Post(ctx, pathPasswordResetConfirm, req, &resp); err != nil {
		return model.MessageResponse{}, fmt.Errorf("confirm password reset: %w", err)
	}
	return resp, nil
}

// required takes name/value pairs and rejects the first blank value.
func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return fmt.Errorf("%w: %s is required", model.ErrInvalidInput, pairs[i])
		}
	}
	return nil
}
