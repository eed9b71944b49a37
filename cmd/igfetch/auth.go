package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"igfetch/pkg/auth"
	"igfetch/pkg/config"
	errs "igfetch/pkg/errors"
	"igfetch/pkg/instagram"
	"igfetch/pkg/logger"
	"igfetch/pkg/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Instagram sessions",
	Long: `Manage the Instagram sessions igfetch stores between runs.

Sessions live in the system keychain when one is available, otherwise
in an encrypted file under the igfetch config directory. As a last
resort, IGFETCH_SESSION_ID and IGFETCH_CSRF_TOKEN are read from the
environment.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in and store the session",
	Long: `Log in with your Instagram password and store the resulting
session. Accounts with two-factor authentication are prompted for a
verification code. The password itself is never stored.`,
	Example: `  # Interactive login
  igfetch auth login

  # Login for a known username
  igfetch auth login myusername`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove a stored session",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthLogout,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	Long:  `List stored sessions with their cookie values masked.`,
	RunE:  runAuthList,
}

var authStatusCmd = &cobra.Command{
	Use:   "status [username]",
	Short: "Check whether a stored session is still valid",
	Long: `Verify a stored session against the platform. An expired
session is reported but not removed; run 'igfetch auth login' to
replace it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authListCmd)
	authCmd.AddCommand(authStatusCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return err
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}

	var username string
	if len(args) > 0 {
		username = instagram.SanitizeUsername(args[0])
	}
	if username == "" {
		fmt.Fprint(os.Stderr, "Instagram username: ")
		var input string
		if _, err := fmt.Fscanln(os.Stdin, &input); err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
		username = strings.TrimSpace(input)
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	password, err := auth.PromptPassword("Password: ")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := instagram.NewClient(cfg.DownloadTimeout(), logger.GetLogger())
	result, challenge, err := client.Login(ctx, username, password)
	if errs.Is(err, errs.ErrorTypeTwoFactor) {
		code, promptErr := auth.PromptTwoFactorCode()
		if promptErr != nil {
			return promptErr
		}
		result, err = client.TwoFactorLogin(ctx, challenge, code)
	}
	if err != nil {
		return err
	}

	if err := manager.Store(&auth.Session{
		Username:  result.Username,
		SessionID: result.SessionID,
		CSRFToken: result.CSRFToken,
		UserAgent: cfg.Instagram.UserAgent,
	}); err != nil {
		return fmt.Errorf("login succeeded but the session could not be stored: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("Logged in as %s, session stored", result.Username))
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}

	if len(args) == 1 {
		username := instagram.SanitizeUsername(args[0])
		if err := manager.Delete(username); err != nil {
			return err
		}
		ui.PrintSuccess(fmt.Sprintf("Removed session for %s", username))
		return nil
	}

	sessions, err := manager.List()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		ui.PrintInfo("Sessions", "none stored")
		return nil
	}
	for _, session := range sessions {
		if err := manager.Delete(session.Username); err != nil {
			ui.PrintWarning("Failed to remove session", session.Username)
			continue
		}
		ui.PrintSuccess(fmt.Sprintf("Removed session for %s", session.Username))
	}
	return nil
}

func runAuthList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}

	sessions, err := manager.List()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		ui.PrintInfo("Sessions", "none stored")
		fmt.Println("\nRun 'igfetch auth login' to store one.")
		return nil
	}

	for _, session := range sessions {
		masked := session.Masked()
		fmt.Printf("%s\n", ui.Cyan(masked.Username))
		fmt.Printf("  session id: %s\n", masked.SessionID)
		fmt.Printf("  csrf token: %s\n", masked.CSRFToken)
		if !masked.LastModified.IsZero() {
			fmt.Printf("  stored:     %s\n", masked.LastModified.Format(time.RFC3339))
		}
	}
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return err
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}

	var session *auth.Session
	if len(args) == 1 {
		session, err = manager.Retrieve(instagram.SanitizeUsername(args[0]))
	} else {
		session, err = manager.RetrieveDefault()
	}
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := instagram.NewClient(cfg.DownloadTimeout(), logger.GetLogger())
	client.UseSession(session.SessionID, session.CSRFToken)

	username, err := client.CurrentUser(ctx)
	if err != nil {
		if errs.Is(err, errs.ErrorTypeAuthExpired) {
			ui.PrintWarning(fmt.Sprintf("Session for %s has expired", session.Username))
			os.Exit(1)
		}
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Session for %s is valid", username))
	return nil
}
