package main

import (
	"os"

	"github.com/go-i2p/go-rns/lib/config"
	"github.com/go-i2p/logger"
	"github.com/spf13/cobra"
)

var log = logger.GetGoI2PLogger()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "go-rns",
		Short: "Reticulum announce validation node",
		Long: `go-rns listens to Reticulum interfaces, verifies every announce it sees,
remembers the destinations they describe and reports the ones you watch.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if path, _ := cmd.Flags().GetString("config"); path != "" {
				config.CfgFile = path
			}
		},
	}
	root.PersistentFlags().String("config", "", "config file (default $HOME/.go-rns/config.yaml)")

	root.AddCommand(
		newDaemonCmd(),
		newMonitorCmd(),
		newIdentityCmd(),
		newHashCmd(),
		newDecodeCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Debug("go-rns exited with an error")
		os.Exit(1)
	}
}
