package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/adanyl0v/go-planner/internal/app"
	"github.com/adanyl0v/go-planner/internal/models"
	"github.com/adanyl0v/go-planner/internal/services"
)

var rootCmd = &cobra.Command{
	Use:           "planner",
	Short:         "Task planning api with workload validation",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the http api",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Serve(ctx)
	},
}

var superadminFlags struct {
	name     string
	email    string
	password string
}

var createSuperadminCmd = &cobra.Command{
	Use:   "create-superadmin",
	Short: "Create a user with the superadmin role",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.Users.CreateUser(cmd.Context(), services.CreateUserParams{
			Name:     superadminFlags.name,
			Email:    superadminFlags.email,
			Password: superadminFlags.password,
			Role:     models.RoleSuperadmin,
		})
		if err != nil {
			a.Logger.Error().
				Err(err).
				Msg("failed to create superadmin")
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "created superadmin %s (id %d)\n", user.Email, user.ID)
		return nil
	},
}

func init() {
	flags := createSuperadminCmd.Flags()
	flags.StringVar(&superadminFlags.name, "name", "Superadmin", "display name")
	flags.StringVar(&superadminFlags.email, "email", "", "login email")
	flags.StringVar(&superadminFlags.password, "password", "", "login password")
	_ = createSuperadminCmd.MarkFlagRequired("email")
	_ = createSuperadminCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(serveCmd, createSuperadminCmd)
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
