package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
)

// CreateAdminCommand bootstraps an administrator account. It is the only
// way to obtain the first admin since the API never grants the role to
// anonymous registrations.
type CreateAdminCommand struct {
	Username     string
	Email        string
	FirstName    string
	LastName     string
	DatabasePath string

	// ReadPassword prompts for the password. Tests replace it.
	ReadPassword func(prompt string) (string, error)
	Out          io.Writer
}

func NewCreateAdminCommand() *CreateAdminCommand {
	return &CreateAdminCommand{
		ReadPassword: readPassword,
		Out:          os.Stdout,
	}
}

func (cmd *CreateAdminCommand) Cobra(cfg *config.Config) *cobra.Command {
	c := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Example: `  librarian create-admin --username head_librarian --email admin@library.example \
      --first-name Ada --last-name Lovelace`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return cmd.Run(c.Context(), cfg.Auth)
		},
	}

	flags := c.Flags()
	flags.StringVar(&cmd.Username, "username", "", "Login name (letters, digits and underscores)")
	flags.StringVar(&cmd.Email, "email", "", "Email address")
	flags.StringVar(&cmd.FirstName, "first-name", "Library", "First name")
	flags.StringVar(&cmd.LastName, "last-name", "Administrator", "Last name")
	flags.StringVar(&cmd.DatabasePath, "db", cfg.Database.Path, "Path to the SQLite database")
	_ = c.MarkFlagRequired("username")
	_ = c.MarkFlagRequired("email")
	return c
}

func (cmd *CreateAdminCommand) Run(ctx context.Context, authCfg config.Auth) error {
	if ctx == nil {
		ctx = context.Background()
	}

	password, err := cmd.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := cmd.ReadPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}
	if len(password) < auth.MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", auth.MinPasswordLength)
	}

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	user, err := auth.NewService(db.DB, authCfg).CreateAdmin(ctx, auth.RegisterInput{
		Username:  strings.TrimSpace(cmd.Username),
		Email:     strings.TrimSpace(cmd.Email),
		Password:  password,
		FirstName: strings.TrimSpace(cmd.FirstName),
		LastName:  strings.TrimSpace(cmd.LastName),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.Out, "Created administrator %s (%s)\n", user.Username, user.ID)
	return nil
}

// readPassword reads a password from the terminal without echo. Piped input
// is read as a single line.
func readPassword(prompt string) (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		var line string
		_, err := fmt.Fscanln(os.Stdin, &line)
		return strings.TrimSpace(line), err
	}

	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
