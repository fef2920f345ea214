package model

type LoginRequest struct {
	EmailOrPhone string `json:"email_or_phone"`
	Password     string `json:"password"`
}

type RegisterRequest struct {
	Email           string `json:"email"`
	PhoneNumber     string `json:"phone_number"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type ResendOTPRequest struct {
	Email string `json:"email"`
}

type PasswordResetRequest struct {
	EmailOrPhone string `json:"email_or_phone"`
}

type PasswordResetVerifyRequest struct {
	EmailOrPhone string `json:"email_or_phone"`
	OTP          string `json:"otp"`
}

type PasswordResetConfirmRequest struct {
	EmailOrPhone string `json:"email_or_phone"`
	NewPassword  string `json:"new_password"`
}

type UpdateStatusRequest struct {
	Status OrderStatus `json:"status"`
}
