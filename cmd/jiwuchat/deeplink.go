package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jiwuchat/jiwuchat-shell/internal/deeplink"
	"github.com/jiwuchat/jiwuchat-shell/internal/defaults"
)

// DeepLinkCmd groups the deep link helpers.
func DeepLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deeplink",
		Short: "Inspect, forward and register jiwuchat:// links",
	}
	cmd.AddCommand(deepLinkParseCmd())
	cmd.AddCommand(deepLinkOpenCmd())
	cmd.AddCommand(deepLinkRegisterCmd())
	return cmd
}

func deepLinkParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <url>",
		Short: "Print the callback record a URL produces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printParsed(cmd.OutOrStdout(), args[0])
		},
	}
}

type parseOutput struct {
	IsOAuthCallback bool                    `json:"isOAuthCallback"`
	Schema          deeplink.Schema         `json:"schema"`
	Record          deeplink.CallbackRecord `json:"record"`
}

func printParsed(w io.Writer, raw string) error {
	c := ServerConfig
	out := parseOutput{
		IsOAuthCallback: deeplink.IsOAuthCallback(c.App.Scheme, raw),
		Schema:          c.Schema(),
		Record:          c.Schema().Parse(raw),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func deepLinkOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <url>...",
		Short: "Hand links to the running shell",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, err := defaults.DataDir()
			if err != nil {
				return err
			}
			n, err := forwardURLs(context.Background(), dataDir, args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "accepted %d of %d link(s)\n", n, len(args))
			return nil
		},
	}
}

func deepLinkRegisterCmd() *cobra.Command {
	var executable string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register this binary as the " + deeplink.DefaultScheme + ":// handler",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := ServerConfig
			err := deeplink.Register(deeplink.Registration{
				Scheme:     c.App.Scheme,
				AppName:    c.App.Name,
				Executable: executable,
			})
			if err != nil {
				return fmt.Errorf("register %s:// handler: %w", c.App.Scheme, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s:// handler\n", c.App.Scheme)
			return nil
		},
	}
	cmd.Flags().StringVar(&executable, "exec", "", "binary to register (default: this executable)")
	return cmd
}
