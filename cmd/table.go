package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/encodeous/dvsim/core"
	"github.com/encodeous/dvsim/state"
	"github.com/spf13/cobra"
)

var maxSteps int

var tableCmd = &cobra.Command{
	Use:   "table [router]",
	Short: "Compute converged routing tables without running the simulation",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topo, err := state.ReadTopology(state.TopologyPath)
		if err != nil {
			return err
		}
		x, err := core.NewExchange(topo)
		if err != nil {
			return err
		}
		err = x.Converge(maxSteps)
		if err != nil {
			return err
		}

		routers := slices.Sorted(maps.Keys(x.States))
		if len(args) == 1 {
			id := state.Address(args[0])
			if _, ok := x.States[id]; !ok {
				return fmt.Errorf("%s is not a router", id)
			}
			routers = []state.Address{id}
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "converged after %d updates\n", x.Delivered)
		for _, id := range routers {
			v := core.ViewOf(x.States[id])
			fmt.Fprintf(out, "\n%s\n", id)
			core.RenderRoutes(out, v, nil)
			core.RenderForwarding(out, v)
		}
		return nil
	},
	GroupID: "tools",
}

func init() {
	rootCmd.AddCommand(tableCmd)

	tableCmd.Flags().IntVar(&maxSteps, "max-steps", 100000, "Give up after this many route update deliveries")
}
