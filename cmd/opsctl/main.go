package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ops-console-backend/internal/apiclient"
	"ops-console-backend/internal/logging"
	"ops-console-backend/internal/resource"
)

// app carries the global flags shared by every subcommand.
type app struct {
	server  string
	token   string
	locale  string
	verbose bool

	stdout io.Writer
	stderr io.Writer
	logger *zap.Logger
}

func (a *app) client() *apiclient.Client {
	return apiclient.New(a.server, a.token, a.logger)
}

// NewRootCmd builds the opsctl command tree writing to stdout and stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, logger: zap.NewNop()}

	root := &cobra.Command{
		Use:           "opsctl",
		Short:         "Manage the operations console registers from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !a.verbose {
				return nil
			}
			logger, err := logging.New("debug", "console", "opsctl")
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.server, "server", envOr("OPS_SERVER", "http://localhost:8080"), "console base URL")
	flags.StringVar(&a.token, "token", os.Getenv("OPS_TOKEN"), "session token (see opsctl login)")
	flags.StringVar(&a.locale, "locale", "pt-BR", "collation locale for text columns")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log API calls to stderr")

	root.AddCommand(
		newLoginCmd(a),
		newKindCmd(a, resource.Equipment),
		newKindCmd(a, resource.EquipmentType),
		newKindCmd(a, resource.MaterialType),
		newKindCmd(a, resource.Operator),
		newKindCmd(a, resource.Release),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print a session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.client().Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, res.Token)
			fmt.Fprintf(a.stderr, "session valid until %s; export OPS_TOKEN to reuse it\n", res.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func main() {
	if err := NewRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
