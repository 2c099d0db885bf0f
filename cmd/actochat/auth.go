package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/acto-client/internal/api"
	"github.com/rickgao/acto-client/internal/session"
)

// readPassword returns the flag value, or the first line of stdin when asked.
func readPassword(cmd *cobra.Command, flagValue string, fromStdin bool) (string, error) {
	if !fromStdin {
		if flagValue == "" {
			return "", errors.New("a password is required (--password or --password-stdin)")
		}
		return flagValue, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password on stdin")
	}
	return line, nil
}

func loginCmd(get func() *app) *cobra.Command {
	var username, password string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			pw, err := readPassword(cmd, password, passwordStdin)
			if err != nil {
				return err
			}

			resp, err := a.client.Login(cmd.Context(), api.LoginRequest{Username: username, Password: pw})
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(resp)
			}
			a.printf("logged in as %s\n", resp.User.Name())
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	cmd.MarkFlagRequired("username")
	return cmd
}

func registerCmd(get func() *app) *cobra.Command {
	var req api.RegisterRequest
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			pw, err := readPassword(cmd, req.Password, passwordStdin)
			if err != nil {
				return err
			}
			req.Password = pw

			resp, err := a.client.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(resp)
			}
			if resp.Token != "" {
				a.printf("registered and logged in as %s\n", resp.User.Name())
				return nil
			}
			a.printf("registered %s\n", req.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Username, "username", "u", "", "username")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "password")
	cmd.Flags().StringVar(&req.DisplayName, "display-name", "", "display name")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if _, err := a.client.Logout(cmd.Context()); err != nil {
				return err
			}
			a.printf("logged out\n")
			return nil
		},
	}
}

func statusCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			token := a.creds.Token(cmd.Context())
			if token == "" {
				a.printf("not logged in\n")
				return nil
			}

			claims, err := session.ParseClaims(token)
			if errors.Is(err, session.ErrNotJWT) {
				a.printf("logged in (opaque token)\n")
				return nil
			}
			if err != nil {
				return err
			}

			if a.json {
				return a.printJSON(claims)
			}

			who := claims.Username
			if who == "" {
				who = claims.Subject
			}
			if who == "" {
				who = claims.UserID
			}
			a.printf("logged in as %s\n", who)
			if !claims.ExpiresAt.IsZero() {
				state := "expires"
				if claims.Expired(time.Now()) {
					state = "expired"
				}
				a.printf("token %s %s\n", state, claims.ExpiresAt.In(a.formatter.Location).Format(time.RFC3339))
			}
			return nil
		},
	}
}

func profileCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the current user's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			resp, err := a.client.GetProfile(cmd.Context())
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(resp)
			}
			printUser(a, resp.User)
			return nil
		},
	}
	cmd.AddCommand(profileSetCmd(get))
	return cmd
}

func profileSetCmd(get func() *app) *cobra.Command {
	var displayName, avatar, status, bio string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update profile fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()

			var update api.ProfileUpdate
			flags := cmd.Flags()
			if flags.Changed("display-name") {
				update.DisplayName = &displayName
			}
			if flags.Changed("avatar") {
				update.Avatar = &avatar
			}
			if flags.Changed("status") {
				update.Status = &status
			}
			if flags.Changed("bio") {
				update.Bio = &bio
			}
			if update == (api.ProfileUpdate{}) {
				return errors.New("nothing to update")
			}

			resp, err := a.client.UpdateProfile(cmd.Context(), update)
			if err != nil {
				return err
			}
			if a.json {
				return a.printJSON(resp)
			}
			printUser(a, resp.User)
			return nil
		},
	}
	cmd.Flags().StringVar(&displayName, "display-name", "", "display name")
	cmd.Flags().StringVar(&avatar, "avatar", "", "avatar URL")
	cmd.Flags().StringVar(&status, "status", "", "status line")
	cmd.Flags().StringVar(&bio, "bio", "", "bio")
	return cmd
}
