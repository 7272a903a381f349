// Command useradd creates a user in the configured directory. Accounts are
// provisioned by operators; the HTTP API has no registration endpoint.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/haguru/schooladmin/config"
	"github.com/haguru/schooladmin/internal/app"
	"github.com/haguru/schooladmin/internal/interfaces"
	"github.com/haguru/schooladmin/internal/models"
	"github.com/haguru/schooladmin/internal/userservice"
	"github.com/haguru/schooladmin/pkg/hasher"
	"github.com/haguru/schooladmin/pkg/zerolog"

	structValidator "github.com/go-playground/validator/v10"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// bcrypt rejects input longer than 72 bytes
const maxPasswordBytes = 72

func main() {
	if err := UserAddCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func UserAddCmd() *cobra.Command {
	var (
		configPath    string
		email         string
		fullName      string
		role          string
		attributes    map[string]string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:           "useradd USERNAME",
		Short:         "Creates a user in the configured user directory",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]

			password, err := readPassword(cmd.InOrStdin(), passwordStdin)
			if err != nil {
				return err
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := app.ValidateConfig(structValidator.New(), cfg); err != nil {
				return err
			}

			logger := zerolog.NewZerologLogger(cfg.ServiceName)
			logger.SetLevel(cfg.LogLevel)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			userRepo, err := app.NewUserRepository(ctx, &cfg.Database, logger)
			if err != nil {
				return err
			}
			defer closeRepo(ctx, userRepo, logger)

			user := models.NewUser(username, "")
			user.Email = email
			user.FullName = fullName
			user.Role = role
			if len(attributes) > 0 {
				user.Attributes = models.Attributes{}
				for k, v := range attributes {
					user.Attributes[k] = v
				}
			}

			svc := userservice.NewUserService(userRepo, hasher.NewBcryptHasher(cfg.PasswordCost), logger)
			id, err := svc.RegisterUser(ctx, *user, password)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created user %s with ID %s\n", username, id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.ConfigPath(), "path to the service config file")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&fullName, "full-name", "", "display name")
	cmd.Flags().StringVar(&role, "role", "", "role, e.g. admin or staff")
	cmd.Flags().StringToStringVar(&attributes, "attr", nil, "extra profile attributes as key=value")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin instead of prompting")

	return cmd
}

func closeRepo(ctx context.Context, userRepo interfaces.UserRepository, logger interfaces.Logger) {
	if err := userRepo.Close(ctx); err != nil {
		logger.Error("failed to close user directory", "error", err)
	}
}

// readPassword prompts with a masked input on a terminal, otherwise reads
// the first line of in.
func readPassword(in io.Reader, fromStdin bool) (string, error) {
	if f, ok := in.(*os.File); !fromStdin && ok && term.IsTerminal(int(f.Fd())) {
		return promptForPassword()
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if err := validatePassword(password); err != nil {
		return "", err
	}
	return password, nil
}

func promptForPassword() (string, error) {
	templates := &promptui.PromptTemplates{
		Prompt:  "{{ . | bold }} ",
		Valid:   "{{ . | green }} ",
		Invalid: "{{ . | red }} ",
		Success: "{{ . | bold }} ",
	}

	prompt := promptui.Prompt{
		Label:     "Password:",
		Templates: templates,
		Mask:      '•',
		Validate:  validatePassword,
	}

	password, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("password prompt aborted: %w", err)
	}
	return password, nil
}

func validatePassword(password string) error {
	if password == "" {
		return errors.New("password cannot be empty")
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("password must be at most %d bytes", maxPasswordBytes)
	}
	return nil
}
