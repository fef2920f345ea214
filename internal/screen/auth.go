package screen

import (
	"context"
	"errors"
	"strings"

	"peelojuice-staff/internal/apierror"
	"peelojuice-staff/internal/model"
	"peelojuice-staff/internal/navigation"
	"peelojuice-staff/internal/otp"
)

const (
	otpLength           = 6
	minRegisterPassword = 6
	minResetPassword    = 8
	paramEmail          = "email"
	paramEmailOrPhone   = "emailOrPhone"
)

func (s *Screens) Login(ctx context.Context, emailOrPhone string, password string) Outcome {
	if strings.TrimSpace(emailOrPhone) == "" || password == "" {
		return failure("Error", "Please enter email and password")
	}

	if err := s.session.Login(ctx, strings.TrimSpace(emailOrPhone), password); err != nil {
		if errors.Is(err, model.ErrAlreadyAuthenticated) {
			return Outcome{Kind: KindInfo, Title: "Signed In", Message: "You are already signed in.", Next: navigation.ScreenDashboard}
		}
		return failure("Login Failed", errorMessage(err, "Login failed"))
	}

	state := s.session.Snapshot()
	message := "Signed in"
	if state.Staff != nil && state.Branch != nil {
		message = "Welcome, " + state.Staff.DisplayName() + " (" + state.Branch.Name + ")"
	}
	return Outcome{Kind: KindSuccess, Title: "Welcome", Message: message, Next: navigation.ScreenDashboard}
}

func (s *Screens) Register(ctx context.Context, form model.RegisterRequest) Outcome {
	form.Email = strings.TrimSpace(form.Email)
	form.PhoneNumber = strings.TrimSpace(form.PhoneNumber)
	form.FirstName = strings.TrimSpace(form.FirstName)
	form.LastName = strings.TrimSpace(form.LastName)

	if form.Email == "" || form.PhoneNumber == "" || form.Password == "" ||
		form.ConfirmPassword == "" || form.FirstName == "" || form.LastName == "" {
		return failure("Error", "Please fill in all fields")
	}
	if form.Password != form.ConfirmPassword {
		return failure("Error", "Passwords do not match")
	}
	if len(form.Password) < minRegisterPassword {
		return failure("Error", "Password must be at least 6 characters")
	}

	if _, err := s.auth.Register(ctx, form); err != nil {
		return failure("Registration Failed", errorMessage(err, "Registration failed"))
	}

	return Outcome{
		Kind:    KindSuccess,
		Title:   "Success",
		Message: "Registration successful! Please verify your email with the OTP sent.",
		Next:    navigation.ScreenOTP,
		Params:  map[string]string{paramEmail: form.Email},
	}
}

// VerifyOTP confirms a registration. Accounts that verify but are not staff
// with a branch stay signed out.
func (s *Screens) VerifyOTP(ctx context.Context, email string, code string) Outcome {
	code = strings.TrimSpace(code)
	if !validOTP(code) {
		return failure("Error", "Please enter a valid 6-digit OTP")
	}

	err := s.session.CompleteVerification(ctx, strings.TrimSpace(email), code)
	switch {
	case err == nil:
		return Outcome{Kind: KindSuccess, Title: "Success", Message: "Account verified successfully!", Next: navigation.ScreenDashboard}
	case errors.Is(err, model.ErrNotStaff), errors.Is(err, model.ErrNoBranch):
		return Outcome{
			Kind:    KindWarning,
			Title:   "Account Verified",
			Message: "Account verified successfully! " + errorMessage(err, ""),
			Next:    navigation.ScreenLogin,
		}
	default:
		return failure("Verification Failed", errorMessage(err, "Invalid OTP"))
	}
}

// ResendOTP sends a new code when the countdown allows it and restarts the
// countdown on success.
func (s *Screens) ResendOTP(ctx context.Context, email string, countdown *otp.Countdown) Outcome {
	if countdown != nil && !countdown.CanResend() {
		return Outcome{Kind: KindInfo, Title: "Please Wait", Message: "You can resend the OTP shortly."}
	}

	if _, err := s.auth.ResendOTP(ctx, email); err != nil {
		return failure("Error", "Failed to resend OTP")
	}
	if countdown != nil {
		countdown.Reset()
	}
	return Outcome{Kind: KindSuccess, Title: "Success", Message: "OTP sent successfully!"}
}

func (s *Screens) ForgotPassword(ctx context.Context, emailOrPhone string) Outcome {
	emailOrPhone = strings.TrimSpace(emailOrPhone)
	if emailOrPhone == "" {
		return failure("Error", "Please enter your email or phone number")
	}

	params := map[string]string{paramEmailOrPhone: emailOrPhone}

	resp, err := s.auth.RequestPasswordReset(ctx, emailOrPhone)
	if err == nil {
		message := resp.Message
		if message == "" {
			message = "Password reset OTP has been sent to your email"
		}
		return Outcome{Kind: KindSuccess, Title: "OTP Sent", Message: message, Next: navigation.ScreenResetPassword, Params: params}
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) && apiErr.PartialFailure() {
		return Outcome{
			Kind:    KindWarning,
			Title:   "Email Delivery Issue",
			Message: apiErr.UserMessage("The reset email could not be delivered.") + " Proceeding anyway.",
			Next:    navigation.ScreenResetPassword,
			Params:  params,
		}
	}

	return failure("Error", errorMessage(err, "Failed to send reset OTP. Please try again."))
}

func (s *Screens) VerifyResetOTP(ctx context.Context, emailOrPhone string, code string) Outcome {
	code = strings.TrimSpace(code)
	if code == "" {
		return failure("Error", "Please enter the OTP")
	}

	resp, err := s.auth.VerifyPasswordResetOTP(ctx, emailOrPhone, code)
	if err != nil {
		return failure("Error", errorMessage(err, "Invalid OTP. Please try again."))
	}

	message := resp.Message
	if message == "" {
		message = "OTP verified successfully"
	}
	return Outcome{Kind: KindSuccess, Title: "Success", Message: message}
}

func (s *Screens) ResetPassword(ctx context.Context, emailOrPhone string, newPassword string) Outcome {
	if newPassword == "" {
		return failure("Error", "Please enter a new password")
	}
	if len(newPassword) < minResetPassword {
		return failure("Error", "Password must be at least 8 characters")
	}

	resp, err := s.auth.ConfirmPasswordReset(ctx, emailOrPhone, newPassword)
	if err != nil {
		return failure("Error", errorMessage(err, "Failed to reset password. Please try again."))
	}

	message := resp.Message
	if message == "" {
		message = "Password reset successful. Please login with your new password"
	}
	return Outcome{Kind: KindSuccess, Title: "Success", Message: message, Next: navigation.ScreenLogin}
}

func validOTP(code string) bool {
	if len(code) != otpLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
