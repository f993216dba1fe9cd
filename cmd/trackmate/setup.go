package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nhle/trackmate/internal/credential"
	"github.com/nhle/trackmate/internal/model"
	"github.com/nhle/trackmate/internal/store"
	"github.com/nhle/trackmate/internal/theme"
)

// setupAnswers collects the values entered in the setup form.
type setupAnswers struct {
	ClientID     string
	ClientSecret string
	SecretKey    string
	FrontendURL  string

	AddIMAP      bool
	IMAPName     string
	IMAPHost     string
	IMAPPort     string
	IMAPUsername string
	IMAPPassword string
	IMAPOwner    string
	IMAPTLS      bool
}

func newSetupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Configure the Google client, signing key and extra mailboxes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, creds, _, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if creds == nil {
				return fmt.Errorf("setup stores secrets in the system keyring, which is unavailable")
			}

			answers := setupAnswers{
				ClientID:    cfg.Google.ClientID,
				FrontendURL: cfg.Server.FrontendURL,
				IMAPTLS:     true,
				IMAPPort:    "993",
			}
			if err := runSetupForm(&answers); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return nil
				}
				return err
			}

			ownerID := ""
			if answers.AddIMAP {
				ownerID, err = lookupOwner(cmd.Context(), cfg.Database.Path, answers.IMAPOwner)
				if err != nil {
					return err
				}
			}

			secrets, err := answers.apply(cfg, ownerID)
			if err != nil {
				return err
			}
			if err := persistSetup(opts.configPath, cfg, creds, secrets); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), theme.SuccessStyle.Render("Configuration saved to "+opts.configPath))
			return nil
		},
	}
}

func runSetupForm(a *setupAnswers) error {
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Google Client ID").
				Description("OAuth client ID from the Google Cloud console").
				Value(&a.ClientID).
				Validate(validateRequired("Client ID")),
			huh.NewInput().
				Title("Google Client Secret").
				Description("Stored in the system keyring; leave empty to keep the current one").
				EchoMode(huh.EchoModePassword).
				Value(&a.ClientSecret),
			huh.NewInput().
				Title("Token Signing Key").
				Description("Leave empty to generate a random key").
				EchoMode(huh.EchoModePassword).
				Value(&a.SecretKey),
			huh.NewInput().
				Title("Frontend URL").
				Description("Where the browser is sent after Google sign-in").
				Placeholder("http://localhost:5173").
				Value(&a.FrontendURL).
				Validate(validateURL),
			huh.NewConfirm().
				Title("Add an IMAP mailbox?").
				Affirmative("Yes").
				Negative("No").
				Value(&a.AddIMAP),
		),
	).Run()
	if err != nil || !a.AddIMAP {
		return err
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Description("A label for this mailbox").
				Placeholder("Work Email").
				Value(&a.IMAPName).
				Validate(validateRequired("Name")),
			huh.NewInput().
				Title("IMAP Host").
				Placeholder("imap.example.com").
				Value(&a.IMAPHost).
				Validate(validateRequired("IMAP Host")),
			huh.NewInput().
				Title("IMAP Port").
				Placeholder("993").
				Value(&a.IMAPPort).
				Validate(validatePort),
			huh.NewInput().
				Title("Username").
				Placeholder("user@example.com").
				Value(&a.IMAPUsername).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("Password").
				Description("Account password or app password").
				EchoMode(huh.EchoModePassword).
				Value(&a.IMAPPassword).
				Validate(validateRequired("Password")),
			huh.NewInput().
				Title("Owner").
				Description("Email of the trackmate user the messages belong to").
				Value(&a.IMAPOwner).
				Validate(validateRequired("Owner")),
			huh.NewConfirm().
				Title("Use TLS").
				Affirmative("Yes").
				Negative("No").
				Value(&a.IMAPTLS),
		),
	).Run()
}

// apply writes the non-secret answers into cfg and returns the secrets to
// store in the keyring. Secrets are removed from cfg so they never reach
// the config file.
func (a setupAnswers) apply(cfg *model.AppConfig, ownerID string) (map[string]string, error) {
	secrets := map[string]string{}

	cfg.Google.ClientID = strings.TrimSpace(a.ClientID)
	cfg.Server.FrontendURL = strings.TrimSpace(a.FrontendURL)
	cfg.Google.ClientSecret = ""
	cfg.Auth.SecretKey = ""

	if s := strings.TrimSpace(a.ClientSecret); s != "" {
		secrets[credential.KeyGoogleClientSecret] = s
	}

	key := strings.TrimSpace(a.SecretKey)
	if key == "" {
		generated, err := randomKey()
		if err != nil {
			return nil, err
		}
		key = generated
	}
	secrets[credential.KeySecretKey] = key

	if !a.AddIMAP {
		return secrets, nil
	}

	id := uniqueSourceID(cfg.Sources, slugify(a.IMAPName))
	cfg.Sources = append(cfg.Sources, model.SourceConfig{
		ID:              id,
		Type:            string(model.SourceTypeIMAP),
		Name:            strings.TrimSpace(a.IMAPName),
		UserID:          ownerID,
		Enabled:         true,
		PollIntervalSec: cfg.Sync.PollIntervalSec,
		Config: map[string]string{
			"host":     strings.TrimSpace(a.IMAPHost),
			"port":     strings.TrimSpace(a.IMAPPort),
			"username": strings.TrimSpace(a.IMAPUsername),
			"tls":      strconv.FormatBool(a.IMAPTLS),
		},
	})
	secrets[credential.IMAPPasswordKey(id)] = a.IMAPPassword

	return secrets, nil
}

// persistSetup stores secrets in the keyring and writes the config file.
func persistSetup(path string, cfg *model.AppConfig, creds *credential.Store, secrets map[string]string) error {
	for key, value := range secrets {
		if err := creds.Set(key, value); err != nil {
			return err
		}
	}
	return model.SaveConfig(path, cfg)
}

func lookupOwner(ctx context.Context, dbPath, email string) (string, error) {
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return "", err
	}
	defer s.Close()

	user, err := s.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("no user %s; sign in with trackmate login first", email)
	}
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func randomKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating signing key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// uniqueSourceID returns base, suffixed when another source already uses it.
func uniqueSourceID(sources []model.SourceConfig, base string) string {
	if base == "" {
		base = uuid.NewString()[:8]
	}
	taken := make(map[string]bool, len(sources))
	for _, s := range sources {
		taken[s.ID] = true
	}

	id := base
	for n := 2; taken[id]; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., https://example.com)")
	}
	return nil
}

func validatePort(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("port is required")
	}
	port, err := strconv.Atoi(s)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535")
	}
	return nil
}
