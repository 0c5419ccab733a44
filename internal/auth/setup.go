package auth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"quotamon/internal/api"
	"quotamon/internal/config"
)

// probePlan asks the usage API which plan a token belongs to, for setup-time
// detection when credential metadata is missing. The probe gets a tighter
// timeout than the dashboard client. Replaceable in tests.
var probePlan = func(token string) (string, error) {
	client := api.NewClient(api.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}))
	return client.FetchPlanType(context.Background(), token)
}

// OpenBrowser opens url in the default browser. Returns false if no opener
// could be started.
func OpenBrowser(url string) bool {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start() == nil
}

// RunSetup walks the user through authentication. Reads prompts from in and
// writes to out so the flow is testable.
func RunSetup(in io.Reader, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintln(out, "  quotamon setup - OAuth authentication")
	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintln(out)

	if creds := ClaudeCodeCredentials(); creds != nil {
		fmt.Fprintln(out, "Found existing Claude Code credentials.")
		fmt.Fprintf(out, "  Token: %s\n", maskToken(creds.AccessToken))
		if plan, ok := PlanFromSubscription(creds.SubscriptionType); ok {
			cfg.PlanType = plan
			fmt.Fprintf(out, "  Plan:  %s\n", strings.ToUpper(plan))
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Setup complete! Run 'quotamon' to launch the dashboard.")
		return nil
	}

	fmt.Fprintln(out, "quotamon reads your Claude Code OAuth token to monitor")
	fmt.Fprintln(out, "quota usage. You need to be logged in to Claude Code first:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  claude /login")
	fmt.Fprintln(out)

	fmt.Fprint(out, "Open the login page in your browser? [Y/n]: ")
	answer, _ := reader.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer == "" || answer == "y" || answer == "yes" {
		OpenBrowser("https://claude.ai/login")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Complete the login in your browser, then run: claude /login")
		fmt.Fprintln(out)
	}

	fmt.Fprint(out, "Press Enter after you've logged in to Claude Code... ")
	reader.ReadString('\n')
	fmt.Fprintln(out)

	if creds := ClaudeCodeCredentials(); creds != nil {
		fmt.Fprintln(out, "Credentials found!")
		if plan, ok := PlanFromSubscription(creds.SubscriptionType); ok {
			cfg.PlanType = plan
			fmt.Fprintf(out, "  Plan: %s\n", strings.ToUpper(plan))
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Setup complete! Run 'quotamon' to launch the dashboard.")
		return nil
	}

	fmt.Fprintln(out, "Could not find Claude Code credentials.")
	fmt.Fprintln(out, "You can paste your OAuth token manually instead.")
	fmt.Fprint(out, "OAuth token (or Enter to skip): ")
	token, _ := reader.ReadString('\n')
	token = strings.TrimSpace(token)
	if token == "" {
		fmt.Fprintln(out, "Setup incomplete. Run 'quotamon setup' again after logging in.")
		return nil
	}

	if err := StoreToken(token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	fmt.Fprintln(out, "Token saved.")

	fmt.Fprintln(out, "Detecting plan type...")
	cfg.PlanType = DetectPlanType(func() (string, error) {
		return probePlan(token)
	})
	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Fprintf(out, "  Plan: %s\n", strings.ToUpper(cfg.PlanType))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Setup complete! Run 'quotamon' to launch the dashboard.")
	return nil
}

// RunAdminSetup prompts for an Anthropic Admin API key and stores it in the
// config. The key unlocks the dashboard's API mode (organization usage and
// cost reports).
func RunAdminSetup(in io.Reader, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintln(out, "  quotamon setup - Admin API key")
	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "An Admin API key (sk-ant-admin-...) enables organization")
	fmt.Fprintln(out, "usage and cost reporting. Create one in the Anthropic Console.")
	fmt.Fprintln(out)

	if cfg.AdminAPIKey != "" {
		fmt.Fprintf(out, "Current key: %s\n", maskToken(cfg.AdminAPIKey))
	}
	fmt.Fprint(out, "Admin API key (or Enter to skip): ")
	key, _ := reader.ReadString('\n')
	key = strings.TrimSpace(key)
	if key == "" {
		fmt.Fprintln(out, "Skipped. OAuth-only monitoring remains available.")
		return nil
	}

	cfg.AdminAPIKey = key
	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Fprintln(out, "Admin API key saved. Press 'm' in the dashboard for API mode.")
	return nil
}

func maskToken(token string) string {
	if len(token) <= 16 {
		return "(token found)"
	}
	return token[:12] + "..." + token[len(token)-4:]
}
