// Package cli is the staff console: one subcommand per screen, each refused
// unless its screen is reachable in the current session phase.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"peelojuice-staff/internal/navigation"
	"peelojuice-staff/internal/otp"
	"peelojuice-staff/internal/screen"
	"peelojuice-staff/internal/session"
	"peelojuice-staff/internal/sessionstore"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type Session interface {
	Initialize(ctx context.Context)
	Snapshot() session.State
}

type Options struct {
	Session     Session
	Screens     *screen.Screens
	Navigator   *navigation.Navigator
	In          io.Reader
	Out         io.Writer
	Err         io.Writer
	Version     string
	OTPInterval time.Duration
	// OTP records when codes were sent; defaults to an in-memory tracker.
	OTP *otp.Tracker
	// Ticks drives the OTP countdown; defaults to a one-second ticker.
	Ticks   func() (<-chan time.Time, func())
	Metrics prometheus.Gatherer
	// Sandbox serves the local API double until ctx ends.
	Sandbox func(ctx context.Context, addr string, seed bool) error
	Logger  *slog.Logger
}

type command struct {
	name    string
	summary string
	screen  navigation.Screen
	run     func(ctx context.Context, c *CLI, args []string) (screen.Outcome, error)
}

type CLI struct {
	opts     Options
	in       *bufio.Reader
	commands map[string]command
}

var errUsage = errors.New("usage")

func New(opts Options) *CLI {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Navigator == nil {
		opts.Navigator = navigation.NewNavigator()
	}
	if opts.Ticks == nil {
		opts.Ticks = func() (<-chan time.Time, func()) {
			ticker := time.NewTicker(time.Second)
			return ticker.C, ticker.Stop
		}
	}
	if opts.OTP == nil {
		opts.OTP = otp.NewTracker(sessionstore.NewMemoryStore(), opts.OTPInterval, nil)
	}
	if opts.In == nil {
		opts.In = strings.NewReader("")
	}

	c := &CLI{opts: opts, in: bufio.NewReader(opts.In), commands: map[string]command{}}
	for _, cmd := range builtinCommands() {
		c.commands[cmd.name] = cmd
	}
	return c
}

// Run executes one subcommand and returns the process exit code.
func (c *CLI) Run(ctx context.Context, args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		c.usage()
		if len(args) == 0 {
			return exitUsage
		}
		return exitOK
	}

	cmd, ok := c.commands[args[0]]
	if !ok {
		fmt.Fprintf(c.opts.Err, "unknown command %q\n\n", args[0])
		c.usage()
		return exitUsage
	}

	if cmd.screen != "" {
		c.opts.Session.Initialize(ctx)
		phase := c.opts.Session.Snapshot().Phase
		c.opts.Navigator.Sync(phase)

		if err := c.opts.Navigator.Push(cmd.screen); err != nil {
			fmt.Fprintf(c.opts.Err, "%s is not available while %s\n", cmd.name, phase)
			if hint := entryHint(phase); hint != "" {
				fmt.Fprintf(c.opts.Err, "try: %s\n", hint)
			}
			return exitError
		}
	}

	outcome, err := cmd.run(ctx, c, args[1:])
	defer c.logUsage()

	if err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			return exitUsage
		}
		fmt.Fprintf(c.opts.Err, "%s: %v\n", cmd.name, err)
		return exitError
	}

	c.report(outcome)
	if outcome.Kind == screen.KindError {
		return exitError
	}
	return exitOK
}

// report prints the outcome and follows its navigation hint.
func (c *CLI) report(outcome screen.Outcome) {
	if outcome.Title != "" || outcome.Message != "" {
		writeOutcome(c.opts.Err, outcome)
	}
	if outcome.Next == "" {
		return
	}

	c.opts.Navigator.Sync(c.opts.Session.Snapshot().Phase)
	if err := c.opts.Navigator.Push(outcome.Next); err != nil {
		c.opts.Logger.Debug("next screen not reachable", "screen", outcome.Next, "error", err)
		return
	}
	if hint := nextHint(outcome); hint != "" {
		fmt.Fprintf(c.opts.Err, "next: %s\n", hint)
	}
}

func (c *CLI) usage() {
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(c.opts.Err, "usage: staff <command> [flags]")
	fmt.Fprintln(c.opts.Err)
	tw := newTable(c.opts.Err)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%s\n", name, c.commands[name].summary)
	}
	_ = tw.Flush()
}

// prompt reads one line from the input when value is empty.
func (c *CLI) prompt(label string, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(c.opts.Err, "%s: ", label)
	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// logUsage reports how many API calls the command made.
func (c *CLI) logUsage() {
	if c.opts.Metrics == nil || !c.opts.Logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	families, err := c.opts.Metrics.Gather()
	if err != nil {
		c.opts.Logger.Debug("metrics unavailable", "error", err)
		return
	}

	var requests float64
	for _, family := range families {
		if family.GetName() != "staff_api_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			requests += metric.GetCounter().GetValue()
		}
	}
	c.opts.Logger.Debug("api usage", "requests", requests)
}

func entryHint(phase session.Phase) string {
	switch phase {
	case session.PhaseUnauthenticated:
		return "staff login -id <email or phone>"
	case session.PhaseAuthenticated:
		return "staff dashboard"
	default:
		return ""
	}
}

func nextHint(outcome screen.Outcome) string {
	switch outcome.Next {
	case navigation.ScreenOTP:
		return "staff verify-otp -email " + outcome.Params["email"] + " -code <otp>"
	case navigation.ScreenResetPassword:
		return "staff reset-password -id " + outcome.Params["emailOrPhone"] + " -code <otp> -password <new password>"
	case navigation.ScreenLogin:
		return "staff login -id <email or phone>"
	case navigation.ScreenDashboard:
		return "staff dashboard"
	default:
		return ""
	}
}
