package cmd

import (
	"fmt"

	"github.com/encodeous/dvsim/state"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a topology file and print its expanded form",
	RunE: func(cmd *cobra.Command, args []string) error {
		topo, err := state.ReadTopology(state.TopologyPath)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s is valid: %d routers, %d hosts, %d links\n",
			state.TopologyPath, len(topo.Routers), len(topo.Hosts), len(topo.Links))
		if ok, _ := cmd.Flags().GetBool("expand"); ok {
			fmt.Fprint(out, topo.String())
		}
		return nil
	},
	GroupID: "tools",
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolP("expand", "e", false, "Print the topology with graph lines turned into links")
}
