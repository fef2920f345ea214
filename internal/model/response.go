package model

type LoginResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	User         *StaffProfile `json:"user"`
}

type VerifyOTPResponse struct {
	Access  string        `json:"access"`
	Refresh string        `json:"refresh"`
	User    *StaffProfile `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
