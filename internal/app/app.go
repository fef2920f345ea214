package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"peelojuice-staff/internal/apiclient"
	"peelojuice-staff/internal/cli"
	"peelojuice-staff/internal/config"
	"peelojuice-staff/internal/database"
	"peelojuice-staff/internal/event"
	"peelojuice-staff/internal/model"
	"peelojuice-staff/internal/navigation"
	"peelojuice-staff/internal/otp"
	"peelojuice-staff/internal/sandbox"
	"peelojuice-staff/internal/screen"
	"peelojuice-staff/internal/service"
	"peelojuice-staff/internal/session"
	"peelojuice-staff/internal/sessionstore"
)

const (
	shutdownTimeout = 10 * time.Second

	demoEmail    = "staff@peelojuice.test"
	demoPhone    = "+15550100"
	demoPassword = "juice1234"
)

// IO are the streams the console reads from and writes to.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

type App struct {
	cfg     *config.Config
	streams IO
	logger  *slog.Logger

	Store    sessionstore.Store
	Client   *apiclient.Client
	Session  *session.Controller
	Registry *prometheus.Registry

	console      *cli.CLI
	cleanupFuncs []func()
}

func New(ctx context.Context, cfg *config.Config, streams IO, version string) (*App, error) {
	if streams.Out == nil {
		streams.Out = os.Stdout
	}
	if streams.Err == nil {
		streams.Err = os.Stderr
	}

	a := &App{cfg: cfg, streams: streams, logger: slog.Default()}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store

	bus := event.NewBus()
	journalCtx, stopJournal := context.WithCancel(context.Background())
	journalDone := event.NewJournal(bus, a.logger).Run(journalCtx)
	a.cleanupFuncs = append(a.cleanupFuncs, func() {
		stopJournal()
		<-journalDone
	})

	a.Registry = prometheus.NewRegistry()
	client, err := apiclient.New(cfg.APIBaseURL, store,
		apiclient.WithTimeout(cfg.APITimeout),
		apiclient.WithRegistry(a.Registry),
		apiclient.WithLogger(a.logger),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize API client: %w", err)
	}
	a.Client = client

	authService := service.NewAuthService(client)
	orderService := service.NewOrderService(client, bus)

	a.Session = session.NewController(store, authService,
		session.WithBus(bus),
		session.WithLogger(a.logger),
	)
	client.Observe(a.Session)

	a.console = cli.New(cli.Options{
		Session:     a.Session,
		Screens:     screen.New(a.Session, authService, orderService, cfg.RecentOrdersLimit),
		Navigator:   navigation.NewNavigator(),
		In:          streams.In,
		Out:         streams.Out,
		Err:         streams.Err,
		Version:     version,
		OTPInterval: cfg.OTPResendInterval,
		OTP:         otp.NewTracker(store, cfg.OTPResendInterval, nil),
		Metrics:     a.Registry,
		Sandbox:     a.ServeSandbox,
		Logger:      a.logger,
	})

	return a, nil
}

func (a *App) openStore(ctx context.Context) (sessionstore.Store, error) {
	switch a.cfg.SessionBackend {
	case config.BackendMemory:
		return sessionstore.NewMemoryStore(), nil
	case config.BackendPostgres:
		db, err := database.New(ctx, a.cfg.DatabaseURL, a.cfg.DatabaseMaxConns)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.cleanupFuncs = append(a.cleanupFuncs, db.Close)

		if err := db.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}
		return sessionstore.NewPostgresStore(db), nil
	default:
		store, err := sessionstore.NewFileStore(a.cfg.SessionFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open session file: %w", err)
		}
		return store, nil
	}
}

// Run executes one console command and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	return a.console.Run(ctx, args)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}

// ServeSandbox serves the local API double on addr until ctx is cancelled.
func (a *App) ServeSandbox(ctx context.Context, addr string, seed bool) error {
	sb := sandbox.New(sandbox.Options{
		AuthRPM:    30,
		GeneralRPM: 600,
		Deliver: func(address string, code string) {
			fmt.Fprintf(a.streams.Err, "sandbox mail to %s: code %s\n", address, code)
		},
	})
	if seed {
		if err := seedSandbox(sb); err != nil {
			return fmt.Errorf("seed sandbox: %w", err)
		}
		fmt.Fprintf(a.streams.Err, "demo staff login: %s / %s\n", demoEmail, demoPassword)
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           sb.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("sandbox starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("sandbox failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	a.logger.Info("sandbox stopped")
	return nil
}

func seedSandbox(sb *sandbox.Server) error {
	branch := &model.BranchProfile{ID: 1, Name: "Downtown", Address: "12 Orchard Street", Phone: "+15550111", City: "Metro"}
	if _, err := sb.AddAccount(sandbox.Account{
		Email:     demoEmail,
		Phone:     demoPhone,
		Password:  demoPassword,
		FirstName: "Dana",
		LastName:  "Reyes",
		IsStaff:   true,
		Branch:    branch,
	}); err != nil {
		return err
	}

	customers := []model.OrderCustomer{
		{FullName: "Sam Patel", PhoneNumber: "+15550123", Email: "sam@example.com"},
		{FullName: "Lee Chen", PhoneNumber: "+15550124", Email: "lee@example.com"},
		{FullName: "Ana Costa", PhoneNumber: "+15550125", Email: "ana@example.com"},
	}
	statuses := []model.OrderStatus{
		model.StatusPending,
		model.StatusConfirmed,
		model.StatusPreparing,
		model.StatusOutForDelivery,
		model.StatusDelivered,
		model.StatusCancelled,
	}

	created := time.Now().UTC().Add(-3 * time.Hour)
	for i, status := range statuses {
		sb.AddOrder(branch.ID, model.Order{
			Status:      status,
			TotalAmount: "9.50",
			CreatedAt:   created.Add(time.Duration(i) * 20 * time.Minute),
			User:        customers[i%len(customers)],
			Items: []model.OrderItem{
				{ID: int64(i*2 + 1), JuiceName: "Orange Sunrise", Quantity: 1, PricePerItem: "4.50"},
				{ID: int64(i*2 + 2), JuiceName: "Green Detox", Quantity: 1, PricePerItem: "5.00"},
			},
			Payment: &model.Payment{Method: "cash"},
		})
	}
	return nil
}
