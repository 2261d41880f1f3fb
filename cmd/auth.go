package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/theapemachine/mcp-wrappers/pkg/graph"
	"github.com/theapemachine/mcp-wrappers/pkg/service"
	"golang.org/x/oauth2"
)

var (
	authCmd = &cobra.Command{
		Use:   "auth",
		Short: "Manage Microsoft Graph sign-in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	authGraphCmd = &cobra.Command{
		Use:   "graph",
		Short: "Sign in to Microsoft Graph with a device code",
		Long:  longAuthGraph,
		RunE: func(cmd *cobra.Command, args []string) error {
			authenticator, err := newAuthenticator()

			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()

			tok, err := authenticator.Login(ctx, func(code *oauth2.DeviceAuthResponse) {
				fmt.Fprint(out, details(
					"Microsoft Graph sign-in",
					"Open", verificationURL(code),
					"Code", code.UserCode,
					"Expires", code.Expiry.Format(time.Kitchen),
				))
				fmt.Fprintln(out, mutedStyle.Render("Waiting for the sign-in to complete..."))
			})

			if err != nil {
				return err
			}

			fmt.Fprint(out, "\n"+details(
				"Signed in",
				"Token file", authenticator.Store().Path(),
				"Expires", tok.Expiry.Format(time.RFC3339),
			))

			return nil
		},
	}

	authStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the cached Microsoft Graph token",
		RunE: func(cmd *cobra.Command, args []string) error {
			authenticator, err := newAuthenticator()

			if err != nil {
				return err
			}

			status, err := authenticator.Status()

			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), renderStatus(status))

			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authGraphCmd)
	authCmd.AddCommand(authStatusCmd)
}

func newAuthenticator() (*graph.Authenticator, error) {
	cfg, err := service.LoadConfig(viper.GetViper())

	if err != nil {
		return nil, err
	}

	return graph.NewAuthenticator(cfg.Graph.Config), nil
}

func verificationURL(code *oauth2.DeviceAuthResponse) string {
	if code.VerificationURIComplete != "" {
		return code.VerificationURIComplete
	}

	return code.VerificationURI
}

func renderStatus(status graph.Status) string {
	if !status.SignedIn {
		return details(
			"Microsoft Graph",
			"Signed in", "no",
			"Token file", status.TokenFile,
		) + mutedStyle.Render("Run `mcp-wrappers auth graph` to sign in.") + "\n"
	}

	pairs := []string{
		"Signed in", "yes",
		"Token file", status.TokenFile,
		"Expires", status.Expiry.Format(time.RFC3339),
		"Expired", fmt.Sprint(status.Expired),
		"Refreshable", fmt.Sprint(status.Refreshable),
	}

	if claims := status.Claims; claims != nil {
		pairs = append(pairs,
			"User", claims.User,
			"Name", claims.Name,
			"Tenant", claims.TenantID,
			"Scopes", strings.Join(claims.Scopes, " "),
		)
	}

	return details("Microsoft Graph", pairs...)
}

var longAuthGraph = `
Sign in to Microsoft Graph with the device-code flow. The command prints a
code and a URL; open the URL in any browser, enter the code, and the token is
cached in ~/.mcp-wrappers/graph_token.json for the server to use.

Requires graph.clientID (or GRAPH_CLIENT_ID) to name an Entra ID application
with public client flows enabled.
`
