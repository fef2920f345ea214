package model

// BranchProfile is the physical location a staff account is assigned to.
type BranchProfile struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	City    string `json:"city"`
}

// StaffProfile is the server's snapshot of the authenticated user.
type StaffProfile struct {
	ID             int64          `json:"id"`
	FullName       string         `json:"full_name"`
	FirstName      string         `json:"first_name,omitempty"`
	LastName       string         `json:"last_name,omitempty"`
	Email          string         `json:"email"`
	PhoneNumber    string         `json:"phone_number"`
	IsStaff        bool           `json:"is_staff"`
	AssignedBranch *BranchProfile `json:"assigned_branch"`
}

// DisplayName falls back to the email and then a generic label.
func (s StaffProfile) DisplayName() string {
	if s.FullName != "" {
		return s.FullName
	}
	if s.Email != "" {
		return s.Email
	}
	return "Staff Member"
}

// Session is the persisted record of the signed-in staff member.
// Staff and Branch are either both set or both nil.
type Session struct {
	AccessToken  string
	RefreshToken string
	Staff        *StaffProfile
	Branch       *BranchProfile
}

func (s Session) Complete() bool {
	return s.AccessToken != "" && s.Staff != nil && s.Branch != nil
}
