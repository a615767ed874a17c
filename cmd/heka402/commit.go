package main

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/vitwit/heka402/field"
	"github.com/vitwit/heka402/utils"
)

var (
	commitSecret   string
	commitTo       string
	commitAmount   string
	commitDecimals int
)

// commitCmd prints every intermediate value of a commitment. Handy when a
// chain rejects a proof and the prover's inputs need checking by hand.
var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Compute a payment commitment offline",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := field.ParseSecret(commitSecret)
		if err != nil {
			return err
		}
		amountStr, err := atomicAmount(commitAmount, commitDecimals)
		if err != nil {
			return err
		}
		amount, err := utils.ValidateBigInt(amountStr)
		if err != nil {
			return err
		}

		trace, err := field.Commit(secret, commitTo, amount)
		if err != nil {
			return err
		}
		word, err := field.ToBytes32(trace.Commitment)
		if err != nil {
			return err
		}

		return printJSON(cmd.OutOrStdout(), map[string]string{
			"recipientHash": trace.RecipientHash.String(),
			"amount":        trace.Amount.String(),
			"t1":            trace.T1.String(),
			"t2":            trace.T2.String(),
			"t2Squared":     trace.T2Squared.String(),
			"commitment":    trace.Commitment.String(),
			"bytes32":       hexutil.Encode(word[:]),
		})
	},
}

func init() {
	commitCmd.Flags().StringVar(&commitSecret, "secret", "", "payer secret, decimal or 0x hex")
	commitCmd.Flags().StringVar(&commitTo, "to", "", "recipient address")
	commitCmd.Flags().StringVar(&commitAmount, "amount", "", "amount")
	commitCmd.Flags().IntVar(&commitDecimals, "decimals", -1, "read --amount as a human amount with this many decimals")
	_ = commitCmd.MarkFlagRequired("secret")
	_ = commitCmd.MarkFlagRequired("to")
	_ = commitCmd.MarkFlagRequired("amount")

	rootCmd.AddCommand(commitCmd)
}
