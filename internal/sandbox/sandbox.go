// Package sandbox is an in-process stand-in for the staff REST API. It
// implements the same endpoints and error shapes so the client can be
// exercised end to end without the hosted backend.
package sandbox

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"peelojuice-staff/internal/model"
)

type Options struct {
	Secret         string
	AccessTTL      time.Duration
	BcryptCost     int
	AuthRPM        int
	GeneralRPM     int
	CORSOrigins    []string
	RequestTimeout time.Duration
	// OTP generates one-time codes; defaults to six random digits.
	OTP func() string
	// Deliver is called with every code placed in the outbox.
	Deliver func(address string, code string)
	Now     func() time.Time
}

type account struct {
	profile      model.StaffProfile
	passwordHash []byte
	verified     bool
	otp          string
	resetOTP     string
	resetOK      bool
}

type Server struct {
	opts   Options
	tokens *tokenIssuer

	mu            sync.RWMutex
	accounts      map[int64]*account
	logins        map[string]int64
	orders        map[int64]*model.Order
	orderBranch   map[int64]int64
	nextAccountID int64
	nextOrderID   int64
	emailDown     bool
	outbox        map[string]string
}

func New(opts Options) *Server {
	if opts.Secret == "" {
		opts.Secret = "sandbox-secret"
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.OTP == nil {
		opts.OTP = randomOTP
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Server{
		opts:          opts,
		tokens:        newTokenIssuer([]byte(opts.Secret), opts.AccessTTL, opts.Now),
		accounts:      map[int64]*account{},
		logins:        map[string]int64{},
		orders:        map[int64]*model.Order{},
		orderBranch:   map[int64]int64{},
		nextAccountID: 1,
		nextOrderID:   1,
		outbox:        map[string]string{},
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	return newRouter(s)
}

// Account describes a seeded user. Seeded accounts are already verified.
type Account struct {
	Email     string
	Phone     string
	Password  string
	FirstName string
	LastName  string
	IsStaff   bool
	Branch    *model.BranchProfile
}

func (s *Server) AddAccount(spec Account) (model.StaffProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, err := s.createLocked(spec)
	if err != nil {
		return model.StaffProfile{}, err
	}
	acct.verified = true
	return acct.profile, nil
}

// AddOrder stores order under branchID, assigning an id and order number
// when they are missing.
func (s *Server) AddOrder(branchID int64, order model.Order) model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == 0 {
		order.ID = s.nextOrderID
	}
	if order.ID >= s.nextOrderID {
		s.nextOrderID = order.ID + 1
	}
	if order.OrderNumber == "" {
		order.OrderNumber = fmt.Sprintf("PJ-%05d", order.ID)
	}
	if order.Status == "" {
		order.Status = model.StatusPending
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = s.opts.Now().UTC()
	}

	stored := order
	s.orders[order.ID] = &stored
	s.orderBranch[order.ID] = branchID
	return stored
}

// ExpireSessions invalidates every access token issued so far.
func (s *Server) ExpireSessions() {
	s.tokens.revokeAll()
}

// SetEmailDelivery toggles whether outgoing email succeeds. While it fails,
// password reset requests report the OTP in the error payload.
func (s *Server) SetEmailDelivery(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emailDown = !ok
}

// LastOTP returns the most recent code "emailed" to address.
func (s *Server) LastOTP(address string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outbox[normalizeLogin(address)]
}

func (s *Server) createLocked(spec Account) (*account, error) {
	email := normalizeLogin(spec.Email)
	phone := normalizeLogin(spec.Phone)
	if email == "" || spec.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", model.ErrInvalidInput)
	}
	if _, exists := s.logins[email]; exists {
		return nil, fmt.Errorf("%w: %s already registered", model.ErrInvalidInput, email)
	}
	if _, exists := s.logins[phone]; phone != "" && exists {
		return nil, fmt.Errorf("%w: %s already registered", model.ErrInvalidInput, phone)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(spec.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, err
	}

	id := s.nextAccountID
	s.nextAccountID++

	profile := model.StaffProfile{
		ID:          id,
		FullName:    joinName(spec.FirstName, spec.LastName),
		FirstName:   spec.FirstName,
		LastName:    spec.LastName,
		Email:       email,
		PhoneNumber: spec.Phone,
		IsStaff:     spec.IsStaff,
	}
	if spec.Branch != nil {
		branch := *spec.Branch
		profile.AssignedBranch = &branch
	}

	acct := &account{profile: profile, passwordHash: hash}
	s.accounts[id] = acct
	s.logins[email] = id
	if phone != "" {
		s.logins[phone] = id
	}
	return acct, nil
}

func (s *Server) lookupLocked(login string) (*account, bool) {
	id, ok := s.logins[normalizeLogin(login)]
	if !ok {
		return nil, false
	}
	acct, ok := s.accounts[id]
	return acct, ok
}

func (s *Server) sendOTPLocked(address string) string {
	code := s.opts.OTP()
	s.outbox[normalizeLogin(address)] = code
	if s.opts.Deliver != nil {
		s.opts.Deliver(address, code)
	}
	return code
}

func randomOTP() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "000000"
	}
	return fmt.Sprintf("%06d", n.Int64())
}
