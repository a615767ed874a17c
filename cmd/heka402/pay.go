package main

import (
	"github.com/spf13/cobra"

	"github.com/vitwit/heka402/types"
)

var (
	payTo       string
	payAmount   string
	payDecimals int
	payToken    string
	payChains   []uint64
	paySecret   string

	x402URL string
)

var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "Execute a split payment",
	Long:  "Split --amount across --chains (first chain takes the remainder) and settle every leg.",
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := atomicAmount(payAmount, payDecimals)
		if err != nil {
			return err
		}

		h, log, err := newOrchestrator(cmd.Context())
		if err != nil {
			return err
		}
		defer log.Sync()
		defer h.Close()

		res, err := h.ExecutePayment(cmd.Context(), &types.PaymentRequest{
			Recipient: payTo,
			Amount:    amount,
			Token:     payToken,
			Chains:    parseChains(payChains),
			Secret:    paySecret,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var x402Cmd = &cobra.Command{
	Use:   "x402",
	Short: "Pay the recipient advertised by an x402 resource",
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := atomicAmount(payAmount, payDecimals)
		if err != nil {
			return err
		}

		h, log, err := newOrchestrator(cmd.Context())
		if err != nil {
			return err
		}
		defer log.Sync()
		defer h.Close()

		res, err := h.X402Payment(cmd.Context(), &types.X402Request{
			URL:    x402URL,
			Amount: amount,
			Token:  payToken,
			Chains: parseChains(payChains),
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	payCmd.Flags().StringVar(&payTo, "to", "", "recipient address")
	payCmd.Flags().StringVar(&paySecret, "secret", "", "payer secret (generated when empty, never reuse one)")
	payCmd.Flags().Uint64SliceVar(&payChains, "chains", nil, "chain ids in settlement order")
	_ = payCmd.MarkFlagRequired("to")
	_ = payCmd.MarkFlagRequired("chains")

	x402Cmd.Flags().StringVar(&x402URL, "url", "", "x402 discovery URL")
	x402Cmd.Flags().Uint64SliceVar(&payChains, "chains", nil, "chain ids (defaults to the active chain)")
	_ = x402Cmd.MarkFlagRequired("url")

	for _, c := range []*cobra.Command{payCmd, x402Cmd} {
		c.Flags().StringVar(&payAmount, "amount", "", "total amount")
		c.Flags().IntVar(&payDecimals, "decimals", -1, "read --amount as a human amount with this many decimals")
		c.Flags().StringVar(&payToken, "token", "", "ERC-20 token address (native currency when empty)")
		_ = c.MarkFlagRequired("amount")
		rootCmd.AddCommand(c)
	}
}
