package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/encodeous/dvsim/protocol"
	"github.com/encodeous/dvsim/state"
	"github.com/spf13/cobra"
)

var decodeWidths = state.DefaultWidths

var decodeCmd = &cobra.Command{
	Use:   "decode <frame>",
	Short: "Decode a packet frame",
	Long:  `Decodes a frame with the widths of the topology given by -t, or with the width flags.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := decodeWidths
		if cmd.Flags().Changed("topology") {
			topo, err := state.ReadTopology(state.TopologyPath)
			if err != nil {
				return err
			}
			w = *topo.Widths
		}
		err := w.Validate()
		if err != nil {
			return err
		}
		codec := protocol.NewCodec(w)
		p, err := codec.DecodePacket([]byte(args[0]))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "dst:     %q\n", p.Dst)
		fmt.Fprintf(out, "proto:   %s\n", p.Proto)
		if p.Proto != protocol.Control {
			fmt.Fprintf(out, "payload: %q\n", p.Payload)
			return nil
		}
		update, err := codec.DecodeUpdate(p.Payload)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "origin:  %s\n", update.Origin)
		for _, dst := range slices.Sorted(maps.Keys(update.Table)) {
			fmt.Fprintf(out, "  %s: %s\n", dst, update.Table[dst])
		}
		return nil
	},
	GroupID: "tools",
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().IntVar(&decodeWidths.Dest, "dest", decodeWidths.Dest, "destination field width")
	decodeCmd.Flags().IntVar(&decodeWidths.Tag, "tag", decodeWidths.Tag, "protocol tag width")
	decodeCmd.Flags().IntVar(&decodeWidths.Name, "name", decodeWidths.Name, "router name width")
	decodeCmd.Flags().IntVar(&decodeWidths.Table, "table", decodeWidths.Table, "routing table width")
}
