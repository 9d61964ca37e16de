package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	authservice "github.com/FACorreiaa/echo-voice-assistant/internal/domain/auth/service"
	"github.com/FACorreiaa/echo-voice-assistant/pkg/config"
)

func tokenCmd() *cobra.Command {
	var (
		userID   string
		deviceID string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a device access token",
		Long:  `Sign an access token for a user and device with the server's JWT_SECRET.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			id, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			if ttl <= 0 {
				ttl = cfg.Auth.AccessTokenTTL
			}

			auth := authservice.NewAuthService(authservice.NewJWTManager(cfg.Auth.JWTSecret, ttl), slog.Default())
			token, err := auth.IssueDeviceToken(cmd.Context(), id, deviceID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id the token authenticates")
	cmd.Flags().StringVar(&deviceID, "device", "voicectl", "device id carried in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to JWT_ACCESS_TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
