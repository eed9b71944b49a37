package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"igfetch/pkg/auth"
	"igfetch/pkg/config"
	errs "igfetch/pkg/errors"
	"igfetch/pkg/instagram"
	"igfetch/pkg/logger"
	"igfetch/pkg/scraper"
	"igfetch/pkg/ui"
)

var (
	// fetch command flags
	outputDir       string
	delayMin        int
	delayMax        int
	maxRetries      int
	downloadTimeout int
	skipVideos      bool
	accountName     string
	notifications   bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <username>",
	Short: "Download all posts of an Instagram account",
	Long: `Download every post of an Instagram account into
<output>/<username>/, one media file per post item plus a JSON
metadata sidecar.

Requests are spaced by a randomized delay, so a large account takes a
while. Interrupting the run is safe: the next run skips everything
already on disk and continues from there.

A stored session is reused when one exists; otherwise you are prompted
to log in and the session is saved for next time.`,
	Example: `  # Download an account with default pacing
  igfetch fetch natgeo

  # Faster pacing and a custom output directory
  igfetch fetch natgeo --delay-min 5 --delay-max 10 --output ~/archive

  # Skip videos, use a specific stored login
  igfetch fetch natgeo --skip-videos --account myaccount`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&outputDir, "output", "o", "", "base output directory (default ./downloaded_posts)")
	fetchCmd.Flags().IntVar(&delayMin, "delay-min", 0, "minimum seconds between requests")
	fetchCmd.Flags().IntVar(&delayMax, "delay-max", 0, "maximum seconds between requests")
	fetchCmd.Flags().IntVar(&maxRetries, "max-retries", 0, "retry attempts for rate-limited requests")
	fetchCmd.Flags().IntVar(&downloadTimeout, "download-timeout", 0, "per-request timeout in seconds")
	fetchCmd.Flags().BoolVar(&skipVideos, "skip-videos", false, "download images only")
	fetchCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored login")
	fetchCmd.Flags().BoolVar(&notifications, "notifications", true, "desktop notifications on completion and rate limits")
}

// Running `igfetch <username>` without a subcommand behaves like
// `igfetch fetch <username>`.
func init() {
	rootCmd.Args = cobra.ArbitraryArgs
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 && !isKnownCommand(args[0]) {
			return runFetch(fetchCmd, args)
		}
		return cmd.Help()
	}
}

func isKnownCommand(arg string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == arg || cmd.HasAlias(arg) {
			return true
		}
	}
	return false
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadFetchConfig()
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	username := cfg.TargetAccount
	if len(args) > 0 {
		username = instagram.SanitizeUsername(args[0])
	}
	if username == "" {
		ui.PrintError("No account given", "pass a username or set target_account in the config file")
		os.Exit(1)
	}
	if !instagram.IsValidUsername(username) {
		ui.PrintError("Invalid username", username)
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logging", err.Error())
		os.Exit(1)
	}
	log := logger.GetLogger()
	log.InfoWithFields("igfetch starting", map[string]interface{}{
		"version": version,
		"target":  username,
	})
	ui.PrintInfo("Target", username)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := scraper.New(sessionProvider(cfg), cfg)
	summary, err := s.Run(ctx, username)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			ui.PrintWarning("Interrupted; run again to resume")
		}
		log.ErrorWithFields("run failed", map[string]interface{}{
			"target": username,
			"error":  err.Error(),
		})
		os.Exit(1)
	}

	ui.PrintSuccess(fmt.Sprintf("Done: %d downloaded, %d skipped, %d failed",
		summary.Counts.Downloaded, summary.Counts.Skipped, summary.Counts.Failed))
	return nil
}

func loadFetchConfig() (*config.Config, error) {
	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if delayMin > 0 {
		flags["delay-min"] = delayMin
	}
	if delayMax > 0 {
		flags["delay-max"] = delayMax
	}
	if maxRetries > 0 {
		flags["max-retries"] = maxRetries
	}
	if downloadTimeout > 0 {
		flags["download-timeout"] = downloadTimeout
	}
	if skipVideos {
		flags["skip-videos"] = true
	}
	if !notifications {
		flags["notifications"] = false
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}
	return config.Load(configFile, flags)
}

// sessionProvider resolves a session for the run: a stored session
// when one validates, an interactive login otherwise.
func sessionProvider(cfg *config.Config) scraper.SessionProvider {
	return scraper.SessionProviderFunc(func(ctx context.Context) (scraper.Session, error) {
		log := logger.GetLogger()
		client := instagram.NewClient(cfg.DownloadTimeout(), log)
		if cfg.Instagram.UserAgent != "" {
			client.SetHeader("User-Agent", cfg.Instagram.UserAgent)
		}

		manager, err := auth.NewManager()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize session manager: %w", err)
		}

		stored, err := retrieveStored(manager)
		if err == nil {
			client.UseSession(stored.SessionID, stored.CSRFToken)
			if stored.UserAgent != "" {
				client.SetHeader("User-Agent", stored.UserAgent)
			}

			if _, err := client.CurrentUser(ctx); err == nil {
				log.InfoWithFields("reusing stored session", map[string]interface{}{
					"username": stored.Username,
				})
				ui.PrintInfo("Session", stored.Username)
				return client, nil
			}
			ui.PrintWarning("Stored session is no longer valid, logging in again")
		}

		result, err := interactiveLogin(ctx, client)
		if err != nil {
			return nil, err
		}

		if err := manager.Store(&auth.Session{
			Username:  result.Username,
			SessionID: result.SessionID,
			CSRFToken: result.CSRFToken,
			UserAgent: cfg.Instagram.UserAgent,
		}); err != nil {
			// The login still works for this run.
			log.WarnWithFields("failed to store session", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			ui.PrintSuccess("Session stored for future runs")
		}
		return client, nil
	})
}

// retrieveStored picks the stored session to try: the --account one
// when given, the default otherwise.
func retrieveStored(manager *auth.Manager) (*auth.Session, error) {
	if accountName != "" {
		return manager.Retrieve(accountName)
	}
	return manager.RetrieveDefault()
}

// interactiveLogin prompts for credentials and completes a two-factor
// challenge when the account requires one.
func interactiveLogin(ctx context.Context, client *instagram.Client) (*instagram.LoginResult, error) {
	loginUser := accountName
	if loginUser == "" {
		fmt.Fprint(os.Stderr, "Instagram username: ")
		var input string
		if _, err := fmt.Fscanln(os.Stdin, &input); err != nil {
			return nil, fmt.Errorf("failed to read username: %w", err)
		}
		loginUser = strings.TrimSpace(input)
	}
	if loginUser == "" {
		return nil, fmt.Errorf("username is required")
	}

	password, err := auth.PromptPassword("Password: ")
	if err != nil {
		return nil, err
	}

	result, challenge, err := client.Login(ctx, loginUser, password)
	if errs.Is(err, errs.ErrorTypeTwoFactor) {
		code, promptErr := auth.PromptTwoFactorCode()
		if promptErr != nil {
			return nil, promptErr
		}
		return client.TwoFactorLogin(ctx, challenge, code)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
