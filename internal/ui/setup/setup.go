// Package setup holds the interactive forms used by the operational
// commands: the configuration wizard and the credential prompt.
package setup

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/nhle/compliance-notifier/internal/model"
)

// minSecretLen is the shortest JWT secret the wizard accepts.
const minSecretLen = 16

// PasswordForm asks for a secret without echoing it. The entered value is
// written to value when the form completes.
func PasswordForm(title string, value *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				EchoMode(huh.EchoModePassword).
				Value(value).
				Validate(validateRequired(title)),
		),
	)
}

// Wizard edits the configuration sections most deployments change. Form
// fields bind to the wizard; Apply copies them back into the config.
type Wizard struct {
	cfg *model.AppConfig

	dueSoonDays string
	interval    string
}

// NewWizard returns a wizard pre-filled from cfg.
func NewWizard(cfg *model.AppConfig) *Wizard {
	return &Wizard{
		cfg:         cfg,
		dueSoonDays: strconv.Itoa(cfg.Engine.DueSoonDays),
		interval:    cfg.Scheduler.Interval.String(),
	}
}

// Form builds the huh form. Groups for the API and the event broker are
// hidden when those features are switched off.
func (w *Wizard) Form() *huh.Form {
	c := w.cfg
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Database driver").
				Options(huh.NewOptions("sqlite", "postgres")...).
				Value(&c.Database.Driver),
			huh.NewInput().
				Title("Database DSN").
				Description("A file path for sqlite, a postgres:// URL for postgres").
				Value(&c.Database.DSN).
				Validate(func(s string) error { return validateDSN(c.Database.Driver, s) }),
			huh.NewInput().
				Title("Keyring entry").
				Description("Optional; the postgres password is read from this keyring entry").
				Value(&c.Database.PasswordKey),
		).Title("Database"),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Run the scheduler?").
				Value(&c.Scheduler.Enabled),
			huh.NewInput().
				Title("Tick interval").
				Placeholder("1h").
				Value(&w.interval).
				Validate(validateInterval),
			huh.NewInput().
				Title("Cron expression").
				Description("Optional; replaces the interval").
				Value(&c.Scheduler.Cron),
			huh.NewInput().
				Title("Due-soon window (days)").
				Value(&w.dueSoonDays).
				Validate(validatePositive("Due-soon window")),
			huh.NewSelect[string]().
				Title("Escalation strategy").
				Options(
					huh.NewOption("Highest qualifying level", "highest"),
					huh.NewOption("Lowest qualifying level", "lowest"),
				).
				Value(&c.Engine.EscalationStrategy),
		).Title("Engine"),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Serve the REST API?").
				Value(&c.HTTP.Enabled),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Listen address").
				Value(&c.HTTP.Addr).
				Validate(validateRequired("Listen address")),
			huh.NewInput().
				Title("JWT secret").
				EchoMode(huh.EchoModePassword).
				Value(&c.HTTP.JWTSecret).
				Validate(validateSecret),
		).Title("API").WithHideFunc(func() bool { return !c.HTTP.Enabled }),

		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Event broker").
				Options(huh.NewOptions("none", "rabbitmq", "kafka")...).
				Value(&c.Events.Driver),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Broker URL").
				Description("amqp:// URL for rabbitmq").
				Value(&c.Events.URL),
			huh.NewInput().
				Title("Kafka brokers").
				Description("Comma-separated host:port list").
				Value(&c.Events.Brokers),
			huh.NewInput().
				Title("Queue or topic").
				Value(&c.Events.Destination).
				Validate(validateRequired("Queue or topic")),
		).Title("Events").WithHideFunc(func() bool { return c.Events.Driver == "none" }),

		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Log level").
				Options(huh.NewOptions("trace", "debug", "info", "warn", "error")...).
				Value(&c.Log.Level),
			huh.NewSelect[string]().
				Title("Log format").
				Options(huh.NewOptions("json", "text")...).
				Value(&c.Log.Format),
		).Title("Logging"),
	)
}

// Apply parses the text fields back into the config and validates it.
func (w *Wizard) Apply() error {
	days, err := strconv.Atoi(strings.TrimSpace(w.dueSoonDays))
	if err != nil {
		return fmt.Errorf("due-soon window: %w", err)
	}
	interval, err := parseInterval(w.interval)
	if err != nil {
		return err
	}

	w.cfg.Engine.DueSoonDays = days
	w.cfg.Scheduler.Interval = interval
	return w.cfg.Validate()
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validatePositive(fieldName string) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n < 1 {
			return fmt.Errorf("%s must be a positive number", fieldName)
		}
		return nil
	}
}

func validateInterval(s string) error {
	_, err := parseInterval(s)
	return err
}

func validateSecret(s string) error {
	if len(s) < minSecretLen {
		return fmt.Errorf("secret must be at least %d characters", minSecretLen)
	}
	return nil
}

func validateDSN(driver, s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("DSN is required")
	}
	if driver != "postgres" || !strings.Contains(s, "://") {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid DSN: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("DSN scheme must be postgres")
	}
	return nil
}

func parseInterval(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: %w", s, err)
	}
	if d < time.Second {
		return 0, fmt.Errorf("interval must be at least 1s")
	}
	return d, nil
}
