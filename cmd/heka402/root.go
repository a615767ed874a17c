package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vitwit/heka402"
	"github.com/vitwit/heka402/logger"
	"github.com/vitwit/heka402/types"
	"github.com/vitwit/heka402/utils"
)

// KeyEnv holds the hex signing key.
const KeyEnv = "HEKA402_PRIVATE_KEY"

// GlobalFlags are shared by every command.
type GlobalFlags struct {
	ConfigPath string
	LogLevel   string
}

var globalFlags GlobalFlags

var rootCmd = &cobra.Command{
	Use:           "heka402",
	Short:         "Split private payments across EVM chains",
	Long:          "heka402 commits to a payment once, obtains one zero-knowledge proof and settles the payment in parts on several EVM chains.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigPath, "config", "c", "heka402.yaml", "path to the YAML configuration")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogLevel, "log-level", "", "override the configured log level (debug|info|warn|error)")
}

func loadConfig() (*types.Config, error) {
	cfg, err := utils.LoadConfig(globalFlags.ConfigPath)
	if err != nil {
		return nil, err
	}
	if globalFlags.LogLevel != "" {
		cfg.LogLevel = globalFlags.LogLevel
	}
	return cfg, nil
}

// newOrchestrator loads the config, reads the signing key from the
// environment and dials every configured chain.
func newOrchestrator(ctx context.Context) (*heka402.Heka402, *logger.ZapLogger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	key, err := utils.PrivateKeyFromHex(os.Getenv(KeyEnv))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", KeyEnv, err)
	}

	level := cfg.LogLevel
	if level == "" {
		level = "info"
	}
	log, err := logger.NewZapLogger(level)
	if err != nil {
		return nil, nil, err
	}

	h, err := heka402.New(ctx, cfg, key, heka402.WithLogger(log))
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}
	return h, log, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseChains converts --chains values, keeping their order.
func parseChains(ids []uint64) []types.ChainID {
	out := make([]types.ChainID, 0, len(ids))
	for _, id := range ids {
		out = append(out, types.ChainID(id))
	}
	return out
}

// atomicAmount returns amount in atomic units; with decimals >= 0 the input
// is read as a human amount.
func atomicAmount(amount string, decimals int) (string, error) {
	if decimals < 0 {
		return amount, nil
	}
	n, err := utils.ParseAmountWithDecimals(amount, decimals)
	if err != nil {
		return "", err
	}
	return n.String(), nil
}
