package cmd

import (
	"fmt"
	"os"

	"github.com/encodeous/dvsim/state"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Write a starter topology with routers in a ring",
	RunE: func(cmd *cobra.Command, args []string) error {
		routers, _ := cmd.Flags().GetInt("routers")
		hosts, _ := cmd.Flags().GetInt("hosts")
		force, _ := cmd.Flags().GetBool("force")

		topo, err := ringTopology(routers, hosts)
		if err != nil {
			return err
		}
		err = state.PathValidator(state.TopologyPath)
		if err != nil {
			return err
		}
		if _, err := os.Stat(state.TopologyPath); err == nil && !force {
			return fmt.Errorf("%s already exists, use --force to overwrite it", state.TopologyPath)
		}
		err = os.WriteFile(state.TopologyPath, []byte(topo.String()), 0600)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", state.TopologyPath)
		return nil
	},
	GroupID: "tools",
}

// ringTopology links routers R1..Rn in a ring and attaches hosts H1..Hm to them in turn.
func ringTopology(routers, hosts int) (*state.Topology, error) {
	if routers < 1 || hosts < 0 {
		return nil, fmt.Errorf("need at least one router and no negative host count")
	}
	topo := &state.Topology{
		Hosts:   make([]state.Address, 0),
		Routers: make([]state.Address, 0),
	}
	for i := 1; i <= routers; i++ {
		topo.Routers = append(topo.Routers, state.Address(fmt.Sprintf("R%d", i)))
	}
	for i := 1; i <= hosts; i++ {
		h := state.Address(fmt.Sprintf("H%d", i))
		topo.Hosts = append(topo.Hosts, h)
		topo.Graph = append(topo.Graph, fmt.Sprintf("%s, %s", h, topo.Routers[(i-1)%routers]))
	}
	if routers == 2 {
		topo.Graph = append(topo.Graph, "R1, R2")
	} else if routers > 2 {
		for i := range topo.Routers {
			topo.Graph = append(topo.Graph, fmt.Sprintf("%s, %s", topo.Routers[i], topo.Routers[(i+1)%routers]))
		}
	}
	if hosts >= 2 {
		topo.Messages = []state.MessageCfg{
			{From: "H1", To: "H2", Data: "hello", DelayMs: 500},
		}
	}

	// large rings need a wider distance table than the default
	if need := state.TableLen(topo.Nodes()); need > state.DefaultWidths.Table {
		w := state.DefaultWidths
		w.Table = need
		topo.Widths = &w
	}

	// make sure the result loads
	check := *topo
	check.Links = nil
	err := state.ExpandTopology(&check)
	if err != nil {
		return nil, err
	}
	err = state.TopologyValidator(&check)
	if err != nil {
		return nil, err
	}
	return topo, nil
}

func init() {
	rootCmd.AddCommand(newCmd)

	newCmd.Flags().Int("routers", 4, "number of routers")
	newCmd.Flags().Int("hosts", 2, "number of hosts")
	newCmd.Flags().BoolP("force", "f", false, "overwrite an existing file")
}
