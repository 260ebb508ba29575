package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	from   string
	upTo   string
	status bool
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Print the blocks of the accepted chain",
	Run:   chainRun,
}

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "Print the peers known to the node",
	Run:   peersRun,
}

func init() {
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(peersCmd)
	chainCmd.Flags().StringVarP(&from, "from", "f", "0", "First block number to print.")
	chainCmd.Flags().StringVarP(&upTo, "to", "t", "latest", "Last block number to print.")
	chainCmd.Flags().BoolVar(&status, "status", false, "Print the node status instead of the blocks.")
}

func chainRun(cmd *cobra.Command, args []string) {
	path := fmt.Sprintf("/v1/chain/blocks/%s/%s", from, upTo)
	if status {
		path = "/v1/node/status"
	}

	var out any
	if err := call(http.MethodGet, path, nil, &out); err != nil {
		log.Fatal(err)
	}

	if err := printJSON(cmd.OutOrStdout(), out); err != nil {
		log.Fatal(err)
	}
}

func peersRun(cmd *cobra.Command, args []string) {
	var out any
	if err := call(http.MethodGet, "/v1/peers", nil, &out); err != nil {
		log.Fatal(err)
	}

	if err := printJSON(cmd.OutOrStdout(), out); err != nil {
		log.Fatal(err)
	}
}
