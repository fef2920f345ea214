package sandbox

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"peelojuice-staff/internal/middleware"
)

func newRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(s.opts.GeneralRPM, s.opts.AuthRPM)
	authMiddleware := middleware.NewAuthMiddleware(s.tokens)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(s.opts.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(s.opts.RequestTimeout))

		api.Route("/users", func(users chi.Router) {
			users.Post("/login/", s.handleLogin)
			users.Post("/register/", s.handleRegister)
			users.Post("/verify-otp/", s.handleVerifyOTP)
			users.Post("/resend-otp/", s.handleResendOTP)
			users.Post("/password-reset/request/", s.handlePasswordResetRequest)
			users.Post("/password-reset/verify/", s.handlePasswordResetVerify)
			users.Post("/password-reset/confirm/", s.handlePasswordResetConfirm)
		})

		api.Route("/orders", func(orders chi.Router) {
			orders.Use(authMiddleware.RequireAuth, authMiddleware.RequireStaff)

			orders.Get("/staff-orders/", s.handleListOrders)
			orders.Get("/staff-orders/{orderID}/", s.handleGetOrder)
			orders.Post("/admin/orders/{orderID}/update-status/", s.handleUpdateStatus)
		})
	})

	return r
}
