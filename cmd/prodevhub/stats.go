package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sakif/prodevhub/internal/client"
	"github.com/sakif/prodevhub/internal/model"
)

var (
	apiURL    string
	tokenFile string
)

func init() {
	for _, cmd := range []*cobra.Command{loginCmd, logoutCmd, statsCmd} {
		cmd.Flags().StringVar(&apiURL, "url", envOr("PRODEVHUB_URL", "http://localhost:8080"), "API base URL")
		cmd.Flags().StringVar(&tokenFile, "token-file", defaultTokenFile(), "where tokens are kept between runs")
	}
	loginCmd.Flags().String("email", "", "account email")
	_ = loginCmd.MarkFlagRequired("email")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".prodevhub-tokens.json"
	}
	return filepath.Join(dir, "prodevhub", "tokens.json")
}

func newAPIClient() *client.Client {
	return client.New(apiURL, client.NewFileStore(tokenFile))
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the tokens locally",
	Long: `Signs in with --email. The password is read from PRODEVHUB_PASSWORD,
or prompted for without echo when stdin is a terminal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, err := readPassword(cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		user, err := newAPIClient().Login(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", user.Name)
		return nil
	},
}

// readPassword is replaced in tests.
var readPassword = func(w io.Writer) (string, error) {
	if pw := os.Getenv("PRODEVHUB_PASSWORD"); pw != "" {
		return pw, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("PRODEVHUB_PASSWORD is not set and stdin is not a terminal")
	}

	fmt.Fprint(w, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		return newAPIClient().Logout()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print your coding statistics and latest sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newAPIClient()
		ctx := cmd.Context()

		stats, err := c.SessionStats(ctx)
		if errors.Is(err, client.ErrSessionExpired) {
			return errors.New("not signed in, run `prodevhub login` first")
		}
		if err != nil {
			return err
		}
		recent, err := c.RecentSessions(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Sessions:      %s\n", humanize.Comma(int64(stats.TotalSessions)))
		fmt.Fprintf(out, "Total hours:   %s\n", humanize.FormatFloat("#,###.#", stats.TotalHours))
		fmt.Fprintf(out, "This week:     %s h\n", humanize.FormatFloat("#,###.#", stats.WeeklyHours))
		fmt.Fprintf(out, "Streak:        %d day(s)\n", stats.CurrentStreak)

		if len(recent) == 0 {
			return nil
		}
		fmt.Fprintln(out)
		return printSessions(out, recent)
	},
}

func printSessions(out io.Writer, sessions []model.Session) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tPROJECT\tLENGTH")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s h\n",
			humanize.Time(s.StartTime),
			s.Project,
			humanize.FormatFloat("#.#", s.Hours()),
		)
	}
	return tw.Flush()
}
