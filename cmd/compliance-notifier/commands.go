package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/compliance-notifier/internal/api"
	"github.com/nhle/compliance-notifier/internal/credential"
	"github.com/nhle/compliance-notifier/internal/engine"
	"github.com/nhle/compliance-notifier/internal/events"
	"github.com/nhle/compliance-notifier/internal/model"
	"github.com/nhle/compliance-notifier/internal/report"
	"github.com/nhle/compliance-notifier/internal/seed"
	"github.com/nhle/compliance-notifier/internal/store"
	"github.com/nhle/compliance-notifier/internal/theme"
	"github.com/nhle/compliance-notifier/internal/ui/dashboard"
	"github.com/nhle/compliance-notifier/internal/ui/setup"
)

// userFlag registers -user on fs and returns a getter yielding nil when unset.
func userFlag(fs *flag.FlagSet) func() *string {
	id := fs.String("user", "", "restrict to the given user ID")
	return func() *string {
		if *id == "" {
			return nil
		}
		return id
	}
}

func cmdTick(ctx context.Context, configPath string, _ []string) error {
	a, err := openApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	pub, err := events.New(a.cfg.Events)
	if err != nil {
		return fmt.Errorf("connecting event publisher: %w", err)
	}
	defer pub.Close()

	eng, err := a.engine(pub)
	if err != nil {
		return err
	}
	r, err := eng.Tick(ctx)
	if err != nil {
		return err
	}
	printReport(os.Stdout, r)
	return nil
}

func printReport(w io.Writer, r engine.Report) {
	label := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(18)
	rows := []struct {
		name  string
		value int
	}{
		{"due soon", r.DueSoon},
		{"overdue", r.Overdue},
		{"created", r.Created},
		{"escalated", r.Escalated},
		{"deduplicated", r.Deduped},
		{"unassigned", r.Unassigned},
		{"failed", r.Failed},
		{"settings created", r.SettingsNew},
	}
	fmt.Fprintln(w, theme.HeaderStyle.Render("Tick "+r.StartedAt.Format(time.RFC3339)))
	for _, row := range rows {
		fmt.Fprintf(w, "%s %d\n", label.Render(row.name), row.value)
	}
}

func cmdSeed(ctx context.Context, configPath string, args []string) error {
	var (
		f   *seed.Fixture
		err error
	)
	if len(args) > 0 {
		f, err = seed.LoadFile(args[0])
	} else {
		f, err = seed.Demo()
	}
	if err != nil {
		return err
	}

	a, err := openApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := seed.Apply(ctx, a.store, f, time.Now())
	if err != nil {
		return fmt.Errorf("seeding: %w", err)
	}
	fmt.Printf("users: %d created, %d reused; tasks: %d; settings: %d; escalation levels: %d; templates: %d\n",
		res.UsersCreated, res.UsersReused, res.Tasks, res.Settings, res.EscalationLevels, res.MessageTemplates)
	return nil
}

func cmdStats(ctx context.Context, configPath string, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	user := userFlag(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	a, err := openApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.store.GetTaskStats(ctx, time.Now(), a.cfg.Engine.DueSoonDays, user())
	if err != nil {
		return err
	}

	card := func(name string, value int, color lipgloss.TerminalColor) string {
		v := lipgloss.NewStyle().Bold(true).Foreground(color).Render(fmt.Sprint(value))
		return theme.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Center, v, name))
	}
	fmt.Println(lipgloss.JoinHorizontal(lipgloss.Top,
		card("Total", stats.Total, theme.ColorWhite),
		card("Due soon", stats.DueSoon, theme.ColorYellow),
		card("Overdue", stats.Overdue, theme.ColorRed),
		card("Completed", stats.Completed, theme.ColorGreen),
	))
	return nil
}

func cmdExportAudit(ctx context.Context, configPath string, args []string) error {
	fs := flag.NewFlagSet("export-audit", flag.ContinueOnError)
	user := userFlag(fs)
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}

	a, err := openApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	out := fs.Arg(0)
	sum, err := report.ExportAudit(ctx, a.store, store.NotificationFilter{UserID: user()}, out)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d notifications and %d log entries to %s\n", sum.Notifications, sum.LogEntries, out)
	return nil
}

func cmdDashboard(ctx context.Context, configPath string, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	user := userFlag(fs)
	poll := fs.Duration("poll", dashboard.DefaultPollInterval, "refresh interval")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	a, err := openApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	// Engine logs would draw over the terminal UI.
	a.log.SetOutput(io.Discard)

	eng, err := a.engine(events.Noop{})
	if err != nil {
		return err
	}

	m := dashboard.New(a.store, dashboard.Options{
		UserID:       user(),
		PollInterval: *poll,
		Tick:         eng.Tick,
		DueSoonDays:  a.cfg.Engine.DueSoonDays,
	})
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func cmdToken(ctx context.Context, configPath string, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	userID := fs.String("user", "", "user ID to issue the token for (required)")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil || *userID == "" {
		return errUsage
	}

	a, err := openApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := a.store.GetUser(ctx, *userID)
	if err != nil {
		return err
	}
	token, err := api.IssueToken([]byte(a.cfg.HTTP.JWTSecret), u.ID, u.Role, *ttl, time.Now())
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func cmdSetDBPassword(_ context.Context, configPath string, _ []string) error {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.PasswordKey == "" {
		return errPasswordKeyUnset
	}

	var password string
	if err := setup.PasswordForm("Database password", &password).Run(); err != nil {
		return formError(err)
	}

	if err := credential.Set(cfg.Database.PasswordKey, password); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "stored under %q\n", cfg.Database.PasswordKey)
	return nil
}

func cmdClearDBPassword(_ context.Context, configPath string, _ []string) error {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.PasswordKey == "" {
		return errPasswordKeyUnset
	}

	if err := credential.Delete(cfg.Database.PasswordKey); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "removed %q\n", cfg.Database.PasswordKey)
	return nil
}

func cmdInitConfig(_ context.Context, configPath string, args []string) error {
	fs := flag.NewFlagSet("init-config", flag.ContinueOnError)
	useDefaults := fs.Bool("defaults", false, "write the effective configuration without prompting")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}

	if !*useDefaults {
		w := setup.NewWizard(cfg)
		if err := w.Form().Run(); err != nil {
			return formError(err)
		}
		if err := w.Apply(); err != nil {
			return err
		}
	}

	if err := model.SaveConfig(configPath, cfg); err != nil {
		return err
	}
	fmt.Printf("configuration written to %s\n", configPath)
	return nil
}

var (
	errPasswordKeyUnset = errors.New("database.password_key is not set in the configuration")
	errAborted          = errors.New("aborted")
)

// formError maps a cancelled form to errAborted.
func formError(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return errAborted
	}
	return err
}
