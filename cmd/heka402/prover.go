package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/vitwit/heka402/prover"
)

var proverURL string

var proverCmd = &cobra.Command{
	Use:   "prover",
	Short: "Prover service commands",
}

var proverStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query the prover's liveness endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		url := proverURL
		var timeout time.Duration
		if url == "" {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			url = cfg.ProverURL
			timeout = cfg.ProverTimeout
		}

		status, err := prover.NewHTTPProver(url, timeout).Status(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), status)
	},
}

func init() {
	proverStatusCmd.Flags().StringVar(&proverURL, "prover-url", "", "prover base URL (defaults to the configured one)")

	proverCmd.AddCommand(proverStatusCmd)
	rootCmd.AddCommand(proverCmd)
}
