package cmd

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Ask the node to mine a block with the pending transactions",
	Run:   mineRun,
}

var difficultyCmd = &cobra.Command{
	Use:   "difficulty <value>",
	Short: "Set the difficulty of the next blocks",
	Args:  cobra.ExactArgs(1),
	Run:   settingRun("difficulty"),
}

var rewardCmd = &cobra.Command{
	Use:   "reward <value>",
	Short: "Set the reward of the next blocks",
	Args:  cobra.ExactArgs(1),
	Run:   settingRun("reward"),
}

func init() {
	rootCmd.AddCommand(mineCmd)
	rootCmd.AddCommand(difficultyCmd)
	rootCmd.AddCommand(rewardCmd)
}

func mineRun(cmd *cobra.Command, args []string) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := call(http.MethodPost, "/v1/mining/signal", nil, &resp); err != nil {
		log.Fatal(err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), resp.Status)
}

func settingRun(setting string) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		if _, err := strconv.ParseUint(args[0], 10, 32); err != nil {
			log.Fatalf("invalid %s %q: %s", setting, args[0], err)
		}

		var resp struct {
			Status string `json:"status"`
		}
		if err := call(http.MethodPut, fmt.Sprintf("/v1/chain/%s/%s", setting, args[0]), nil, &resp); err != nil {
			log.Fatal(err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), resp.Status)
	}
}
