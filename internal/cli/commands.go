package cli

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/common-nighthawk/go-figure"

	"peelojuice-staff/internal/model"
	"peelojuice-staff/internal/navigation"
	"peelojuice-staff/internal/screen"
	"peelojuice-staff/internal/service"
)

func builtinCommands() []command {
	return []command{
		{name: "login", summary: "sign in as a staff member", screen: navigation.ScreenLogin, run: runLogin},
		{name: "register", summary: "create an account", screen: navigation.ScreenRegister, run: runRegister},
		{name: "verify-otp", summary: "verify a new account with its emailed code", screen: navigation.ScreenOTP, run: runVerifyOTP},
		{name: "resend-otp", summary: "send a new verification code", screen: navigation.ScreenOTP, run: runResendOTP},
		{name: "forgot-password", summary: "request a password reset code", screen: navigation.ScreenForgotPassword, run: runForgotPassword},
		{name: "reset-password", summary: "set a new password with a reset code", screen: navigation.ScreenResetPassword, run: runResetPassword},
		{name: "dashboard", summary: "branch statistics and recent orders", screen: navigation.ScreenDashboard, run: runDashboard},
		{name: "orders", summary: "list active or completed orders", screen: navigation.ScreenOrders, run: runOrders},
		{name: "order", summary: "show an order or change its status", screen: navigation.ScreenOrderDetail, run: runOrder},
		{name: "profile", summary: "show the signed-in staff member", screen: navigation.ScreenProfile, run: runProfile},
		{name: "logout", summary: "sign out", screen: navigation.ScreenProfile, run: runLogout},
		{name: "version", summary: "print the version", run: runVersion},
		{name: "sandbox", summary: "serve a local copy of the staff API", run: runSandbox},
	}
}

func (c *CLI) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.opts.Err)
	return fs
}

func runLogin(ctx context.Context, c *CLI, args []string) (screen.Outcome, error) {
	fs := c.flags("login")
	id := fs.String("id", "", "email or phone number")
	password := fs.String("password", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return screen.Outcome{}, err
	}

	pw, err := c.prompt("Password", *password)
	if err != nil {
		return screen.Outcome{}, err
	}
	return c.opts.Screens.Login(ctx, *id, pw), nil
}

func runRegister(ctx context.Context, c *CLI, args []string) (screen.Outcome, error) {
	fs := c.flags("register")
	var form model.RegisterRequest
	fs.StringVar(&form.Email, "email", "", "email address")
	fs.StringVar(&form.PhoneNumber, "phone", "", "phone number")
	fs.StringVar(&form.FirstName, "first-name", "", "first name")
	fs.StringVar(&form.LastName, "last-name", "", "last name")
	fs.StringVar(&form.Password, "password", "", "password (prompted when omitted)")
	fs.StringVar(&form.ConfirmPassword, "confirm-password", "", "password again (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return screen.Outcome{}, err
	}

	var err error
	if form.Password, err = c.prompt("Password", form.Password); err != nil {
		return screen.Outcome{}, err
	}
	if form.ConfirmPassword, err = c.prompt("Confirm password", form.ConfirmPassword); err != nil {
		return screen.Outcome{}, err
	}
	outcome := c.opts.Screens.Register(ctx, form)
	if outcome.OK() {
		c.markOTPSent(ctx, outcome.Params["email"])
	}
	return outcome, nil
}

func runVerifyOTP(ctx context.Context, c *CLI, args []string) (screen.Outcome, error) {
	fs := c.flags("verify-otp")
	email := fs.String("email", "", "email the code was sent to")
	code := fs.String("code", "", "6-digit code")
	if err := fs.Parse(args); err != nil {
		return screen.Outcome{}, err
	}
	return c.opts.Screens.VerifyOTP(ctx, *email, *code), nil
}

func runResendOTP(ctx context.Context, c *CLI, args []string) (screen.Outcome, error) {
	fs := c.flags("resend-otp")
	email := fs.String("email", "", "email to send the code to")
	wait := fs.Bool("wait", false, "wait out the resend cooldown instead of stopping")
	if err := fs.Parse(args); err != nil {
		return screen.Outcome{}, err
	}
	if *email == "" {
		fmt.Fprintln(c.opts.Err, "resend-otp: -email is required")
		return screen.Outcome{}, errUsage
	}

	countdown, err := c.opts.OTP.Countdown(ctx, *email)
	if err != nil {
		c.opts.Logger.Warn("otp cooldown unavailable", "error", err)
	}
	if !countdown.CanResend() {
		fmt.Fprintf(c.opts.Err, "You can resend in %ds\n", countdown.Remaining())
		if *wait {
			ticks, stop := c.opts.Ticks()
			countdown.Run(ctx, ticks)
			stop()
			if err := ctx.Err(); err != nil {
				return screen.Outcome{}, err
			}
		}
	}

	outcome := c.opts.Screens.ResendOTP(ctx, *email, countdown)
	if outcome.Kind == screen.KindSuccess {
		c.markOTPSent(ctx, *email)
	}
	return outcome, nil
}

func (c *CLI) markOTPSent(ctx context.Context, email string) {
	if email == "" {
		return
	}
	if err := c.opts.OTP.MarkSent(ctx, email); err != nil {
		c.opts.Logger.Warn("failed to record otp send", "error", err)
	}
}

func runForgotPassword(ctx context.Context, c *CLI, args []string) (screen.Outcome, error) {
	fs := c.flags("forgot-password")
	id := fs.String("id", "", "email or phone number")
	if err := fs.Parse(args); err != nil {
		return screen.Outcome{}, err
	}
	return c.opts.Screens.ForgotPassword(ctx, *id), nil
}

func runResetPassword(ctx context.Context, c *CLI, args []string) (screen.Outcome, error) {
	fs := c.flags("reset-password")
	id := fs.String("id", "", "email or phone number")
	code := fs.String("code", "", "reset code")
	password := fs.String("password", "", "new password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return screen.Outcome{}, err
	}

	verified := c.opts.Screens.VerifyResetOTP(ctx, *id, *code)
	if !verified.OK() {
		return verified, nil
	}
	writeOutcome(c.opts.Err, verified)

	pw, err := c.prompt("New password", *password)
	if err != nil {
		return screen.Outcome{}, err
	}
	return c.opts.Screens.ResetPassword(ctx, *id, pw), nil
}

func runDashboard(ctx context.Context, c *CLI, args []string) (screen.Outcome, error) {
	if err := c.flags("dashboard").Parse(args); err != nil {
		return screen.Outcome{}, err
	}

	view, outcome := c.opts.Screens.Dashboard(ctx)
	if outcome.OK() {
		writeDashboard(c.opts.Out, view)
	}
	return outcome, nil
}

func runOrders(ctx context.Context, c *CLI, args []string) (screen.Outcome, error) {
	fs := c.flags("orders")
	tabName := fs.String("tab", string(service.TabActive), "active or completed")
	if err := fs.Parse(args); err != nil {
		return screen.Outcome{}, err
	}

	tab, err := service.ParseTab(*tabName)
	if err != nil {
		fmt.Fprintln(c.opts.Err, "orders: -tab must be active or completed")
		return screen.Outcome{}, errUsage
	}

	orders, outcome := c.opts.Screens.Orders(ctx, tab)
	if outcome.OK() {
		writeOrders(c.opts.Out, orders)
	}
	return outcome, nil
}

func runOrder(ctx context.Context, c *CLI, args []string) (screen.Outcome, error) {
	fs := c.flags("order")
	id := fs.Int64("id", 0, "order id")
	status := fs.String("status", "", "new status: pending, confirmed, preparing, out_for_delivery")
	if err := fs.Parse(args); err != nil {
		return screen.Outcome{}, err
	}

	order, outcome := c.opts.Screens.OrderDetail(ctx, *id)
	if !outcome.OK() {
		return outcome, nil
	}

	if *status != "" {
		order, outcome = c.opts.Screens.UpdateOrderStatus(ctx, order, model.OrderStatus(*status))
	}
	writeOrder(c.opts.Out, order)
	return outcome, nil
}

func runProfile(_ context.Context, c *CLI, args []string) (screen.Outcome, error) {
	if err := c.flags("profile").Parse(args); err != nil {
		return screen.Outcome{}, err
	}
	writeProfile(c.opts.Out, c.opts.Screens.Profile())
	return screen.Outcome{Kind: screen.KindSuccess}, nil
}

func runLogout(ctx context.Context, c *CLI, args []string) (screen.Outcome, error) {
	if err := c.flags("logout").Parse(args); err != nil {
		return screen.Outcome{}, err
	}
	return c.opts.Screens.Logout(ctx), nil
}

func runVersion(_ context.Context, c *CLI, args []string) (screen.Outcome, error) {
	if err := c.flags("version").Parse(args); err != nil {
		return screen.Outcome{}, err
	}
	printBanner(c.opts.Out, c.opts.Version)
	return screen.Outcome{Kind: screen.KindSuccess}, nil
}

func runSandbox(ctx context.Context, c *CLI, args []string) (screen.Outcome, error) {
	fs := c.flags("sandbox")
	addr := fs.String("addr", "127.0.0.1:8000", "listen address")
	seed := fs.Bool("seed", true, "create a demo staff account and orders")
	if err := fs.Parse(args); err != nil {
		return screen.Outcome{}, err
	}
	if c.opts.Sandbox == nil {
		return screen.Outcome{}, fmt.Errorf("sandbox is not available in this build")
	}
	if err := c.opts.Sandbox(ctx, *addr, *seed); err != nil {
		return screen.Outcome{}, err
	}
	return screen.Outcome{Kind: screen.KindSuccess, Title: "Sandbox", Message: "stopped"}, nil
}

func printBanner(w io.Writer, version string) {
	fmt.Fprintln(w, figure.NewFigure("PeelOJuice", "cybermedium", true).String())
	if version == "" {
		version = "dev"
	}
	fmt.Fprintf(w, "staff console %s\n", version)
}
