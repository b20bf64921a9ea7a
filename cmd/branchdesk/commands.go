package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/bmbranch/branchdesk/internal/alerts"
	"github.com/bmbranch/branchdesk/internal/notify"
	"github.com/bmbranch/branchdesk/pkg/client"
	"github.com/bmbranch/branchdesk/pkg/domain"
)

var (
	headStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#60a5fa")).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8890a0"))
	alertStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f87171")).Bold(true)
)

// -- login / logout / whoami --

func newLoginCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := newDeps(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()
			return runLogin(cmd.Context(), d, cmd.InOrStdin(), cmd.OutOrStdout(), username)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username (prompted when empty)")
	return cmd
}

func runLogin(ctx context.Context, d *deps, in io.Reader, out io.Writer, username string) error {
	d.store.Initialize()
	r := bufio.NewReader(in)

	if username == "" {
		fmt.Fprint(out, "Username: ")
		line, err := readLine(r)
		if err != nil {
			return fmt.Errorf("read username: %w", err)
		}
		username = line
	}
	fmt.Fprint(out, "Password: ")
	password, err := readPassword(in, r)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	req := domain.LoginRequest{Username: strings.TrimSpace(username), Password: password}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(req); err != nil {
		return errors.New("please enter both username and password")
	}

	resp, err := d.client.Login(ctx, req)
	// A 401 here means bad credentials; drain it so it is not mistaken
	// for an expired session later.
	select {
	case <-d.client.AuthFailures():
	default:
	}
	if err != nil {
		d.log.Warn().Err(err).Msg("login failed")
		return errors.New(client.LoginMessage(err))
	}
	if resp.Token == "" || resp.User == nil {
		d.log.Error().Msg("login response missing token or user")
		return errors.New("invalid response from server")
	}
	if err := d.store.Login(resp.Token, *resp.User); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	d.log.Info().Int64("user", resp.User.ID).Msg("signed in")
	fmt.Fprintf(out, "Signed in as %s\n", displayName(*resp.User))
	return nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readPassword reads without echo from a terminal, or a plain line otherwise.
func readPassword(in io.Reader, r *bufio.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		return string(b), err
	}
	return readLine(r)
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := newDeps(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			d.store.Initialize()
			if !d.store.IsAuthenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Already signed out.")
				return nil
			}
			d.store.Logout()
			d.log.Info().Msg("signed out")
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := newDeps(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			out := cmd.OutOrStdout()
			sess, err := d.requireSession()
			if err != nil {
				printSignedOutGreeting(out)
				return err
			}
			u := sess.Identity
			fmt.Fprintln(out, headStyle.Render(displayName(u)))
			row := func(label, value string) {
				if value != "" {
					fmt.Fprintf(out, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-8s", label)), value)
				}
			}
			row("id", fmt.Sprint(u.ID))
			row("email", u.Email)
			row("role", u.Role)
			if u.ClientID != 0 {
				row("client", fmt.Sprint(u.ClientID))
			}
			row("api", d.client.BaseURL())
			if exp, ok := sess.ExpiresAt(); ok {
				row("expires", exp.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}

func displayName(u domain.User) string {
	name := u.Name
	if name == "" {
		name = u.Email
	}
	if u.Role != "" {
		name += " (" + u.Role + ")"
	}
	return name
}

// -- summaries --

// summaryReport is the json/yaml shape of `branchdesk summaries`.
type summaryReport struct {
	Year   int                  `json:"year"   yaml:"year"`
	Month  int                  `json:"month"  yaml:"month"`
	Totals domain.SummaryTotals `json:"totals" yaml:"totals"`
	Days   []domain.RunSummary  `json:"days"   yaml:"days"`
}

func newSummariesCmd() *cobra.Command {
	var (
		year, month int
		clientID    int64
		output      string
	)
	cmd := &cobra.Command{
		Use:   "summaries",
		Short: "Print the daily run summaries for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now()
			if !cmd.Flags().Changed("year") {
				year = now.Year()
			}
			if !cmd.Flags().Changed("month") {
				month = int(now.Month())
			}
			if err := validatePeriod(year, month, now); err != nil {
				return err
			}
			switch output {
			case "table", "json", "yaml":
			default:
				return fmt.Errorf("unknown output %q, want table, json or yaml", output)
			}

			d, err := newDeps(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			sess, err := d.requireSession()
			if err != nil {
				return err
			}
			q := domain.SummaryQuery{Year: year, Month: month, BranchID: sess.Identity.ID, ClientID: clientID}
			days, err := d.client.RunSummaries(cmd.Context(), q)
			if err != nil {
				if err := d.settle(err); errors.Is(err, errSessionExpired) {
					return err
				}
				return errors.New(client.UserMessage(err))
			}
			return writeSummaries(cmd.OutOrStdout(), output, summaryReport{
				Year: year, Month: month, Totals: domain.Totals(days), Days: days,
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year, current or previous (default current)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default current)")
	cmd.Flags().Int64Var(&clientID, "client", 0, "only runs for this client id")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	return cmd
}

// validatePeriod allows the same periods the dashboard offers.
func validatePeriod(year, month int, now time.Time) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("month must be between 1 and 12, got %d", month)
	}
	if year != now.Year() && year != now.Year()-1 {
		return fmt.Errorf("year must be %d or %d, got %d", now.Year()-1, now.Year(), year)
	}
	return nil
}

func writeSummaries(out io.Writer, format string, r summaryReport) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}

	fmt.Fprintln(out, headStyle.Render(fmt.Sprintf("%s %d", time.Month(r.Month), r.Year)))
	if len(r.Days) == 0 {
		fmt.Fprintln(out, labelStyle.Render("no runs this month"))
	} else {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(labelStyle).
			Headers("DATE", "RUNS", "COMPLETED", "AMOUNT", "COMPLETED AMOUNT")
		for _, s := range r.Days {
			t.Row(s.Day(),
				fmt.Sprint(s.TotalRuns), fmt.Sprint(s.TotalRunsCompleted),
				domain.FormatAmount(s.TotalAmount), domain.FormatAmount(s.TotalAmountCompleted))
		}
		fmt.Fprintln(out, t.Render())
	}
	fmt.Fprintf(out, "total runs %d · total amount %s\n", r.Totals.Runs, r.Totals.AmountString())
	return nil
}

// -- sos --

func newSOSCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sos",
		Short: "SOS alerts",
	}
	cmd.AddCommand(newSOSWatchCmd())
	return cmd
}

func newSOSWatchCmd() *cobra.Command {
	var (
		interval time.Duration
		once     bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll SOS alerts and notify when pending ones appear",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := newDeps(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			if _, err := d.requireSession(); err != nil {
				return err
			}
			if err := d.serveMetrics(cmd.Context()); err != nil {
				return err
			}
			if !cmd.Flags().Changed("interval") {
				interval = d.cfg.SOS.Interval
			}
			out := cmd.OutOrStdout()
			return watchSOS(cmd.Context(), d, d.poller(notify.Auto(out)), out, interval, once)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", alerts.DefaultInterval, "polling interval")
	cmd.Flags().BoolVar(&once, "once", false, "poll once and exit")
	return cmd
}

func watchSOS(ctx context.Context, d *deps, p *alerts.Poller, out io.Writer, interval time.Duration, once bool) error {
	if once {
		snap := p.Poll(ctx)
		printSnapshot(out, snap)
		if err := d.settle(nil); err != nil {
			return err
		}
		if snap.Err != "" {
			return errors.New(snap.Err)
		}
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var expired error
	p.Run(ctx, interval, func(snap alerts.Snapshot) {
		printSnapshot(out, snap)
		if err := d.settle(nil); err != nil {
			expired = err
			cancel()
		}
	})
	return expired
}

func printSnapshot(out io.Writer, s alerts.Snapshot) {
	stamp := labelStyle.Render(s.PolledAt.Format("15:04:05"))
	if s.Err != "" {
		fmt.Fprintf(out, "%s %s\n", stamp, alertStyle.Render(s.Err))
		return
	}
	status := labelStyle.Render("no active alerts")
	if s.Active > 0 {
		status = alertStyle.Render(fmt.Sprintf("%d active", s.Active))
	}
	fmt.Fprintf(out, "%s %s %s\n", stamp, status, labelStyle.Render(fmt.Sprintf("(%d total)", len(s.Alerts))))
	for _, a := range s.Pending {
		fmt.Fprintf(out, "  #%d %s %s\n", a.ID, alertStyle.Render(a.SosType), a.GuardName)
	}
}
