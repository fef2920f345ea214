// Package screen holds the presentation flows. Each flow validates its form,
// calls the services and returns an Outcome describing what to show and where
// to go next.
package screen

import (
	"context"
	"errors"

	"peelojuice-staff/internal/apierror"
	"peelojuice-staff/internal/model"
	"peelojuice-staff/internal/navigation"
	"peelojuice-staff/internal/service"
	"peelojuice-staff/internal/session"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Outcome is the result of a flow. Next is empty when the caller should stay
// on the current screen.
type Outcome struct {
	Kind    Kind
	Title   string
	Message string
	Next    navigation.Screen
	Params  map[string]string
}

func (o Outcome) OK() bool {
	return o.Kind == KindSuccess || o.Kind == KindInfo
}

const (
	MsgNotStaff = "This app is for staff members only. Please use the customer app."
	MsgNoBranch = "No branch assigned. Please contact administrator."

	msgNetwork = "Network error. Please check your connection and try again."
	msgTimeout = "The request timed out. Please try again."
	msgStorage = "Could not save your session on this device."
)

type Session interface {
	Login(ctx context.Context, emailOrPhone string, password string) error
	CompleteVerification(ctx context.Context, email string, code string) error
	Logout(ctx context.Context)
	Snapshot() session.State
}

type Auth interface {
	Register(ctx context.Context, req model.RegisterRequest) (model.MessageResponse, error)
	ResendOTP(ctx context.Context, email string) (model.MessageResponse, error)
	RequestPasswordReset(ctx context.Context, emailOrPhone string) (model.MessageResponse, error)
	VerifyPasswordResetOTP(ctx context.Context, emailOrPhone string, code string) (model.MessageResponse, error)
	ConfirmPasswordReset(ctx context.Context, emailOrPhone string, newPassword string) (model.MessageResponse, error)
}

type Orders interface {
	List(ctx context.Context) ([]model.Order, error)
	Get(ctx context.Context, id int64) (model.Order, error)
	UpdateStatus(ctx context.Context, current model.Order, next model.OrderStatus) (model.Order, error)
}

type Screens struct {
	session     Session
	auth        Auth
	orders      Orders
	recentLimit int
}

func New(sess Session, auth Auth, orders Orders, recentLimit int) *Screens {
	if recentLimit <= 0 {
		recentLimit = service.DefaultRecentLimit
	}
	return &Screens{session: sess, auth: auth, orders: orders, recentLimit: recentLimit}
}

func failure(title string, message string) Outcome {
	return Outcome{Kind: KindError, Title: title, Message: message}
}

// errorMessage picks the text shown for err: transport problems get a fixed
// message, server errors their own message, everything else fallback.
func errorMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, model.ErrNotStaff):
		return MsgNotStaff
	case errors.Is(err, model.ErrNoBranch):
		return MsgNoBranch
	case errors.Is(err, model.ErrTimeout):
		return msgTimeout
	case errors.Is(err, model.ErrNetwork):
		return msgNetwork
	case errors.Is(err, model.ErrStorage):
		return msgStorage
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage(fallback)
	}
	return fallback
}
