package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/supertutor/internal/auth"
	"github.com/abhisek/supertutor/internal/config"
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Mint a bearer token for the HTTP API",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if cfg.Auth.Secret == "" {
			return errors.New("auth.secret is required (set SUPERTUTOR_AUTH_SECRET)")
		}
		ttl := cfg.Auth.TTL
		if d, _ := cmd.Flags().GetDuration("ttl"); d > 0 {
			ttl = d
		}
		svc, err := auth.NewService(cfg.Auth.Secret, cfg.Auth.Issuer, ttl)
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		tok, exp, err := svc.Issue(auth.User{ID: args[0], DisplayName: name})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Local().Format(time.RFC1123))
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("name", "", "Display name embedded in the token")
	tokenCmd.Flags().Duration("ttl", 0, "Token lifetime (default auth.ttl)")
}
