// Command tokend maintains a refreshable cache of authentication tokens for
// pools of game credentials and serves it over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	credscmder "github.com/papercomputeco/tokend/cmd/tokend/creds"
	fetchcmder "github.com/papercomputeco/tokend/cmd/tokend/fetch"
	servecmder "github.com/papercomputeco/tokend/cmd/tokend/serve"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "tokend",
		Short:        "Refreshable token cache for credential pools",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config-dir", "", "Override path to the .tokend/ config directory")

	cmd.AddCommand(credscmder.NewCredsCmd())
	cmd.AddCommand(fetchcmder.NewFetchCmd())
	cmd.AddCommand(servecmder.NewServeCmd())

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
