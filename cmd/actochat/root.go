package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickgao/acto-client/internal/version"
)

func newRootCmd() *cobra.Command {
	var opts appOptions
	var a *app

	root := &cobra.Command{
		Use:           "actochat",
		Short:         "Terminal client for the acto chat backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["skipApp"] == "true" {
				return nil
			}
			var err error
			a, err = newApp(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a == nil {
				return nil
			}
			return a.Close()
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "actochat.yaml", "path to config file (missing file means defaults)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print raw JSON responses")

	// Commands receive the app lazily: it only exists after PersistentPreRunE.
	get := func() *app { return a }

	root.AddCommand(
		loginCmd(get),
		registerCmd(get),
		logoutCmd(get),
		statusCmd(get),
		profileCmd(get),
		chatsCmd(get),
		messagesCmd(get),
		sendCmd(get),
		createChatCmd(get),
		searchCmd(get),
		readCmd(get),
		listenCmd(get),
		versionCmd(),
	)

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{"skipApp": "true"},
		Args:        cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
