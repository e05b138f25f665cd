package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-arcade/conveyor/internal/conveyor/config"
	"github.com/go-arcade/conveyor/pkg/http/jwt"
	"github.com/spf13/cobra"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Issue an API token signed with the configured secret key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appConf, err := loadConf()
		if err != nil {
			return err
		}
		httpConf := config.ProvideHttpConfig(appConf)
		if httpConf.Auth.SecretKey == "" {
			return errors.New("http.auth.secretKey is not configured")
		}
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = httpConf.Auth.AccessExpire
		}
		token, err := jwt.GenToken(args[0], []byte(httpConf.Auth.SecretKey), ttl)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime, defaults to http.auth.accessExpire")
}
