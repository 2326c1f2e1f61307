package core

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/encodeous/dvsim/state"
	"github.com/olekukonko/tablewriter"
)

// TableView is a read-only copy of a router's tables used for rendering.
type TableView struct {
	Id         state.Address
	Neighbours []state.Neighbour
	Routes     state.RoutingTable
	Forwarding state.ForwardingTable
}

// ViewOf copies the tables of s.
func ViewOf(s *state.RouterState) TableView {
	return TableView{
		Id:         s.Id,
		Neighbours: slices.Clone(s.Neighbours),
		Routes:     s.Routes.Clone(),
		Forwarding: maps.Clone(s.Forwarding),
	}
}

// ViewOfEvent extracts the tables carried by a TableChanged event.
func ViewOfEvent(ev Event) (TableView, bool) {
	if ev.Kind != TableChanged || ev.Routes == nil {
		return TableView{}, false
	}
	return TableView{
		Id:         ev.Node,
		Neighbours: ev.Neighbours,
		Routes:     ev.Routes,
		Forwarding: ev.Forwarding,
	}, true
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// RenderRoutes writes one row per asserter (the router itself, then its neighbouring routers) and
// one column per destination. dests defaults to every destination the router knows.
func RenderRoutes(w io.Writer, v TableView, dests []state.Address) {
	if dests == nil {
		dests = slices.Sorted(maps.Keys(v.Routes))
	}
	header := []string{string(v.Id)}
	for _, dst := range dests {
		header = append(header, string(dst))
	}
	asserters := []state.Address{v.Id}
	for _, n := range v.Neighbours {
		asserters = append(asserters, n.Name)
	}

	rows := make([][]string, 0, len(asserters))
	for _, a := range asserters {
		row := []string{string(a)}
		for _, dst := range dests {
			cell := "-"
			if cost, ok := v.Routes[dst][a]; ok {
				cell = cost.String()
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}

	table := newTable(w)
	table.SetHeader(header)
	table.AppendBulk(rows)
	table.Render()
}

// RenderForwarding writes the forwarding table with the cost of each selected route.
func RenderForwarding(w io.Writer, v TableView) {
	rows := make([][]string, 0, len(v.Forwarding))
	for _, dst := range slices.Sorted(maps.Keys(v.Forwarding)) {
		rows = append(rows, []string{
			string(dst),
			fmt.Sprint(v.Forwarding[dst]),
			v.Routes[dst][v.Id].String(),
		})
	}
	table := newTable(w)
	table.SetHeader([]string{"DST", "PORT", "COST"})
	table.AppendBulk(rows)
	table.Render()
}
