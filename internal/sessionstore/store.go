// Package sessionstore persists the staff session as a small key-value set.
package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"

	"peelojuice-staff/internal/model"
)

const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyStaff        = "staff"
	KeyBranch       = "branch"
)

// SessionKeys lists every key the client persists.
var SessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyStaff, KeyBranch}

// ExpiredKeys are removed when the server rejects the access token.
var ExpiredKeys = []string{KeyAccessToken, KeyStaff, KeyBranch}

// Store is the persistence contract. Get omits absent keys from the result.
// Implementations wrap failures with model.ErrStorage.
type Store interface {
	Get(ctx context.Context, keys []string) (map[string]string, error)
	SetAll(ctx context.Context, pairs map[string]string) error
	RemoveAll(ctx context.Context, keys []string) error
}

// Encode turns a session into the persisted key-value form.
func Encode(session model.Session) (map[string]string, error) {
	staff, err := json.Marshal(session.Staff)
	if err != nil {
		return nil, fmt.Errorf("encode staff: %w", err)
	}
	branch, err := json.Marshal(session.Branch)
	if err != nil {
		return nil, fmt.Errorf("encode branch: %w", err)
	}

	return map[string]string{
		KeyAccessToken:  session.AccessToken,
		KeyRefreshToken: session.RefreshToken,
		KeyStaff:        string(staff),
		KeyBranch:       string(branch),
	}, nil
}

// Decode rebuilds a session. It returns ok=false unless the token, staff and
// branch entries are all present and well formed.
func Decode(values map[string]string) (model.Session, bool) {
	token := values[KeyAccessToken]
	rawStaff := values[KeyStaff]
	rawBranch := values[KeyBranch]
	if token == "" || rawStaff == "" || rawBranch == "" {
		return model.Session{}, false
	}

	var staff model.StaffProfile
	if err := json.Unmarshal([]byte(rawStaff), &staff); err != nil {
		return model.Session{}, false
	}
	var branch model.BranchProfile
	if err := json.Unmarshal([]byte(rawBranch), &branch); err != nil {
		return model.Session{}, false
	}
	if rawStaff == "null" || rawBranch == "null" {
		return model.Session{}, false
	}

	return model.Session{
		AccessToken:  token,
		RefreshToken: values[KeyRefreshToken],
		Staff:        &staff,
		Branch:       &branch,
	}, true
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", model.ErrStorage, op, err)
}
