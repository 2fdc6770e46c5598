package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BlackMission/tencentauth/internal/domain"
)

// newAuthorizeURLCmd prints a provider authorization URL, for checking the
// app registration on the QQ Connect console without running the server.
func newAuthorizeURLCmd(a *app) *cobra.Command {
	var (
		clientID    string
		redirectURI string
		props       map[string]string
	)

	cmd := &cobra.Command{
		Use:   "authorize-url",
		Short: "Print the QQ Connect authorization URL for a client",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg

			clients, err := buildClients(cfg)
			if err != nil {
				return err
			}
			if err := clients.ValidateCallback(clientID, redirectURI); err != nil {
				return err
			}

			// No replay guard: the printed state is never consumed here.
			hs, err := buildHandshake(cfg, nil, nil)
			if err != nil {
				return err
			}

			u, err := hs.AuthorizationURL(cmd.Context(), domain.AuthorizationRequest{
				CallbackURL: cfg.Server.BaseURL + hs.CallbackPath(),
				RedirectURI: redirectURI,
				ClientID:    clientID,
				Properties:  props,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client", "", "registered client ID")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "where the user lands after sign-in")
	cmd.Flags().StringToStringVar(&props, "prop", nil, "extra properties carried through the handshake (key=value)")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("redirect-uri")
	return cmd
}
