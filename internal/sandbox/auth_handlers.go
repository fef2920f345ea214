package sandbox

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"peelojuice-staff/internal/model"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.EmailOrPhone) == "" || req.Password == "" {
		writeError(w, fail(http.StatusBadRequest, "error", "Email/phone and password are required"))
		return
	}

	s.mu.RLock()
	acct, ok := s.lookupLocked(req.EmailOrPhone)
	var profile model.StaffProfile
	var hash []byte
	var verified bool
	if ok {
		profile, hash, verified = acct.profile, acct.passwordHash, acct.verified
	}
	s.mu.RUnlock()

	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil {
		writeError(w, fail(http.StatusBadRequest, "error", "Invalid credentials"))
		return
	}
	if !verified {
		writeError(w, fail(http.StatusBadRequest, "error", "Please verify your email before logging in"))
		return
	}

	access, refresh, err := s.tokens.issue(profile.ID, profile.IsStaff)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.LoginResponse{AccessToken: access, RefreshToken: refresh, User: &profile})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	missing := map[string]string{}
	for field, value := range map[string]string{
		"email":            req.Email,
		"phone_number":     req.PhoneNumber,
		"password":         req.Password,
		"confirm_password": req.ConfirmPassword,
		"first_name":       req.FirstName,
		"last_name":        req.LastName,
	} {
		if strings.TrimSpace(value) == "" {
			missing[field] = "This field is required."
		}
	}
	if len(missing) > 0 {
		writeError(w, fieldErrors(missing))
		return
	}
	if req.Password != req.ConfirmPassword {
		writeError(w, fieldErrors(map[string]string{"password": "Passwords do not match."}))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.lookupLocked(req.Email); exists {
		writeError(w, fieldErrors(map[string]string{"email": "user with this email already exists."}))
		return
	}
	if _, exists := s.lookupLocked(req.PhoneNumber); exists {
		writeError(w, fieldErrors(map[string]string{"phone_number": "user with this phone number already exists."}))
		return
	}

	acct, err := s.createLocked(Account{
		Email:     req.Email,
		Phone:     req.PhoneNumber,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(w, fail(http.StatusBadRequest, "error", "Registration failed"))
		return
	}
	acct.otp = s.sendOTPLocked(acct.profile.Email)

	writeJSON(w, http.StatusCreated, model.MessageResponse{Message: "Registration successful. Please check your email for the OTP."})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req model.VerifyOTPRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	acct, ok := s.lookupLocked(req.Email)
	if !ok || acct.otp == "" || acct.otp != strings.TrimSpace(req.OTP) {
		s.mu.Unlock()
		writeError(w, fail(http.StatusBadRequest, "message", "Invalid OTP"))
		return
	}
	acct.verified = true
	acct.otp = ""
	profile := acct.profile
	s.mu.Unlock()

	access, refresh, err := s.tokens.issue(profile.ID, profile.IsStaff)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.VerifyOTPResponse{Access: access, Refresh: refresh, User: &profile})
}

func (s *Server) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	var req model.ResendOTPRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.lookupLocked(req.Email)
	if !ok {
		writeError(w, fail(http.StatusNotFound, "error", "User not found"))
		return
	}
	if acct.verified {
		writeError(w, fail(http.StatusBadRequest, "error", "Account is already verified"))
		return
	}
	acct.otp = s.sendOTPLocked(acct.profile.Email)

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "OTP resent successfully"})
}

func (s *Server) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req model.PasswordResetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.lookupLocked(req.EmailOrPhone)
	if !ok {
		writeError(w, fail(http.StatusNotFound, "message", "No account found with this email or phone number"))
		return
	}
	acct.resetOTP = s.sendOTPLocked(acct.profile.Email)
	acct.resetOK = false

	if s.emailDown {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"message":            "Failed to send email. Use the OTP below to continue.",
			"password_reset_otp": acct.resetOTP,
		})
		return
	}

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Password reset OTP sent to your email"})
}

func (s *Server) handlePasswordResetVerify(w http.ResponseWriter, r *http.Request) {
	var req model.PasswordResetVerifyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.lookupLocked(req.EmailOrPhone)
	if !ok || acct.resetOTP == "" || acct.resetOTP != strings.TrimSpace(req.OTP) {
		writeError(w, fail(http.StatusBadRequest, "message", "Invalid or expired OTP"))
		return
	}
	acct.resetOK = true

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "OTP verified successfully"})
}

func (s *Server) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req model.PasswordResetConfirmRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, fieldErrors(map[string]string{"new_password": "Ensure this field has at least 8 characters."}))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.opts.BcryptCost)
	if err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.lookupLocked(req.EmailOrPhone)
	if !ok || !acct.resetOK {
		writeError(w, fail(http.StatusBadRequest, "message", "OTP verification required"))
		return
	}
	acct.passwordHash = hash
	acct.resetOTP = ""
	acct.resetOK = false

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Password reset successful"})
}

func normalizeLogin(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func joinName(first string, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
