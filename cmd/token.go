package cmd

import (
	"errors"

	"github.com/roomify/roomify_server/internal"
	"github.com/roomify/roomify_server/internal/user"
	"github.com/spf13/cobra"
)

var (
	tokenUserID   string
	tokenUsername string
)

// tokenCmd issues a token signed with the configured secret, for local
// development without the identity provider.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a development session token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if tokenUserID == "" {
			return errors.New("--user-id is required")
		}

		config, err := internal.LoadConfig(configPath)
		if err != nil {
			return err
		}
		userService, err := user.NewUserService(config.Users)
		if err != nil {
			return err
		}

		token, _, err := userService.GenerateJWT(&user.User{ID: tokenUserID, Username: tokenUsername})
		if err != nil {
			return err
		}
		cmd.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "", "user id claim")
	tokenCmd.Flags().StringVar(&tokenUsername, "username", "", "username claim")
}
