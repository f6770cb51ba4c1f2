package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	rhclient "github.com/robinhood-client/robinhood-client-go"
	"github.com/robinhood-client/robinhood-client-go/cmd/util"
	"github.com/robinhood-client/robinhood-client-go/pkg/auth"
)

const (
	usernameFlag = "username"
	passwordFlag = "password"
	mfaCodeFlag  = "mfa-code"
)

// NewLoginCommand returns the command that logs in and stores the session.
func NewLoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Long: `Log in with a username and password and store the session for the other commands.

A stored session that is still valid is reused. When the brokerage asks to verify the login,
approve it in the mobile app or enter the code sent by sms or email when prompted.`,
		RunE: runLogin,
		Args: cobra.NoArgs,
		PreRun: func(cmd *cobra.Command, _ []string) {
			flags := cmd.Flags()

			util.MustBindPFlag(usernameFlag, flags.Lookup(usernameFlag))
			util.MustBindEnv(usernameFlag, "RHCLIENT_USERNAME")
			util.MustBindPFlag(passwordFlag, flags.Lookup(passwordFlag))
			util.MustBindEnv(passwordFlag, "RHCLIENT_PASSWORD")
			util.MustBindPFlag(mfaCodeFlag, flags.Lookup(mfaCodeFlag))
		},
	}

	flags := cmd.Flags()

	flags.String(usernameFlag, "", "the account username (prompted for if omitted)")
	flags.String(passwordFlag, "", "the account password (prompted for if omitted)")
	flags.String(mfaCodeFlag, "", "the one time code of accounts with app based MFA")

	// NOTE: if you add a new flag here, add the binding in PreRun

	return cmd
}

func runLogin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.ErrOrStderr()

	prompt := func(_ context.Context, channel string) (string, error) {
		return readLine(in, out, fmt.Sprintf("Enter the verification code sent by %s: ", channel))
	}

	client, _, err := newClient(ctx, rhclient.WithChallengePrompt(prompt))
	if err != nil {
		return err
	}
	defer client.Close()

	// a stored session needs no credentials
	if s, err := client.Resume(ctx); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Already logged in (account %s)\n", s.AccountNumber)
		return nil
	}

	creds := auth.Credentials{
		Username: viper.GetString(usernameFlag),
		Password: viper.GetString(passwordFlag),
		MFACode:  viper.GetString(mfaCodeFlag),
	}
	if creds.Username == "" {
		if creds.Username, err = readLine(in, out, "Username: "); err != nil {
			return err
		}
	}
	if creds.Password == "" {
		if creds.Password, err = readPassword(cmd.InOrStdin(), in, out); err != nil {
			return err
		}
	}

	s, err := client.Login(ctx, creds)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logged in (account %s)\n", s.AccountNumber)
	return nil
}

// NewLogoutCommand returns the command that removes the stored session.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Logout(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func readLine(in *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)

	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo when stdin is a terminal.
func readPassword(stdin io.Reader, in *bufio.Reader, out io.Writer) (string, error) {
	f, ok := stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return readLine(in, out, "Password: ")
	}

	fmt.Fprint(out, "Password: ")
	password, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}
