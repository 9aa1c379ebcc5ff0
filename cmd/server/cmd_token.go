package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/signal-registry/internal/config"
	"github.com/sakif/signal-registry/internal/server"
)

var (
	tokenUser string
	tokenTTL  time.Duration
)

// tokenCmd mints a JWT with the configured secret, for curl-ing a local
// instance. Production tokens come from the user service.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a signed JWT for a user",
	Example: `  JWT_SECRET=... signal-registry token --user 7
  curl -H "Authorization: Bearer $(signal-registry token --user 7)" localhost:8080/api/signal/read?user_id=7&signal_id=1`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := mintToken(cfg, tokenUser, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "User ID to put in the token subject (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (default: JWT_EXP)")
	_ = tokenCmd.MarkFlagRequired("user")
}

// mintToken signs a token for userID. ttl <= 0 uses the configured JWT_EXP.
func mintToken(cfg config.Config, userID string, ttl time.Duration) (string, error) {
	if !cfg.AuthEnabled() {
		return "", errors.New("JWT_SECRET is not set")
	}
	if userID == "" {
		return "", errors.New("--user must not be empty")
	}

	tokens, err := server.NewTokenService(cfg)
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		return tokens.Generate(userID)
	}
	return tokens.GenerateWithDuration(userID, ttl)
}
