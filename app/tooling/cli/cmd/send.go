package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/database"
	"github.com/ardanlabs/gossipchain/foundation/nameservice"
	"github.com/spf13/cobra"
)

var (
	sender string
	to     string
	amount uint32
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send coins to a receiver",
	Run:   sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sender, "sender", "s", "", "Sender of the transaction.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Receiver of the coins.")
	sendCmd.Flags().Uint32VarP(&amount, "amount", "v", 0, "Amount to send.")
}

func sendRun(cmd *cobra.Command, args []string) {

	// Key names found in the key folder can be used in place of addresses.
	ns, err := nameservice.New(keyPath)
	if err != nil {
		log.Fatal(err)
	}

	tx := database.NewTx(ns.Resolve(sender), database.CryptoPayload{
		Receiver: ns.Resolve(to),
		Amount:   amount,
	})

	var resp struct {
		Status string `json:"status"`
	}
	if err := call(http.MethodPost, "/v1/tx/submit", tx, &resp); err != nil {
		log.Fatal(err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), resp.Status)
}
