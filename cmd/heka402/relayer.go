package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vitwit/heka402/relayer"
)

var relayerAddr string

var relayerCmd = &cobra.Command{
	Use:   "relayer",
	Short: "Serve single-leg settlement over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		h, log, err := newOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer log.Sync()
		defer h.Close()

		return relayer.Serve(ctx, relayerAddr, relayer.NewHandler(h, log), log)
	},
}

func init() {
	relayerCmd.Flags().StringVar(&relayerAddr, "addr", ":8080", "listen address")
	rootCmd.AddCommand(relayerCmd)
}
