// Package navigation derives which screens are reachable from the session
// phase.
package navigation

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"peelojuice-staff/internal/session"
)

type Screen string

const (
	ScreenLogin          Screen = "Login"
	ScreenRegister       Screen = "Register"
	ScreenForgotPassword Screen = "ForgotPassword"
	ScreenOTP            Screen = "OTP"
	ScreenResetPassword  Screen = "ResetPassword"
	ScreenDashboard      Screen = "Dashboard"
	ScreenOrders         Screen = "Orders"
	ScreenOrderDetail    Screen = "OrderDetail"
	ScreenProfile        Screen = "Profile"
)

var ErrUnreachable = errors.New("screen not reachable")

// Routes is the screen set for one phase. Entry is empty while loading.
type Routes struct {
	Entry   Screen
	Screens []Screen
}

func (r Routes) Contains(screen Screen) bool {
	return slices.Contains(r.Screens, screen)
}

var (
	unauthenticated = Routes{
		Entry:   ScreenLogin,
		Screens: []Screen{ScreenLogin, ScreenRegister, ScreenForgotPassword, ScreenOTP, ScreenResetPassword},
	}
	authenticated = Routes{
		Entry:   ScreenDashboard,
		Screens: []Screen{ScreenDashboard, ScreenOrders, ScreenOrderDetail, ScreenProfile},
	}
)

// Route is a pure function of the phase.
func Route(phase session.Phase) Routes {
	switch phase {
	case session.PhaseAuthenticated:
		return cloneRoutes(authenticated)
	case session.PhaseUnauthenticated:
		return cloneRoutes(unauthenticated)
	default:
		return Routes{}
	}
}

func cloneRoutes(r Routes) Routes {
	return Routes{Entry: r.Entry, Screens: slices.Clone(r.Screens)}
}

// Navigator is a screen stack that is discarded whenever the phase changes.
type Navigator struct {
	mu     sync.Mutex
	phase  session.Phase
	routes Routes
	stack  []Screen
}

func NewNavigator() *Navigator {
	return &Navigator{phase: session.PhaseLoading}
}

// Sync adopts phase. On a change the stack is reset to the new entry screen;
// it reports whether that happened.
func (n *Navigator) Sync(phase session.Phase) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if phase == n.phase && n.stack != nil {
		return false
	}

	n.phase = phase
	n.routes = Route(phase)
	n.stack = []Screen{}
	if n.routes.Entry != "" {
		n.stack = append(n.stack, n.routes.Entry)
	}
	return true
}

func (n *Navigator) Push(screen Screen) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.routes.Contains(screen) {
		return fmt.Errorf("%w: %s while %s", ErrUnreachable, screen, n.phase)
	}
	n.stack = append(n.stack, screen)
	return nil
}

// Pop removes the top screen; the entry screen is never popped.
func (n *Navigator) Pop() (Screen, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.stack) <= 1 {
		return "", false
	}
	top := n.stack[len(n.stack)-1]
	n.stack = n.stack[:len(n.stack)-1]
	return top, true
}

func (n *Navigator) Current() Screen {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.stack) == 0 {
		return ""
	}
	return n.stack[len(n.stack)-1]
}

func (n *Navigator) Stack() []Screen {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.stack)
}
