package core

import (
	"fmt"
	"maps"
	"slices"

	"github.com/encodeous/dvsim/protocol"
	"github.com/encodeous/dvsim/state"
)

// Router is the environment the routing engine runs in.
type Router interface {
	// SendRouteUpdate transmits an advertisement on the given port. Failures are handled by the implementation.
	SendRouteUpdate(port int, update protocol.RouteUpdate)
	Log(event RouterEvent, desc string, args ...any)
}

// NewRouterState seeds the tables of router id from its local link costs. Every neighbour is a
// destination reached over its own link; isRouter selects the neighbours that take part in the
// routing protocol.
func NewRouterState(id state.Address, costs state.LinkCosts, isRouter func(state.Address) bool) (*state.RouterState, error) {
	links, err := costs.Flatten()
	if err != nil {
		return nil, err
	}
	s := &state.RouterState{
		Id:         id,
		Links:      links,
		Neighbours: make([]state.Neighbour, 0),
		Routes:     make(state.RoutingTable),
		Forwarding: make(state.ForwardingTable),
	}
	for neigh, l := range links {
		if neigh == id {
			return nil, fmt.Errorf("router %s has a link to itself", id)
		}
		if l.Cost == state.INF {
			return nil, fmt.Errorf("link from %s to %s has infinite cost", id, neigh)
		}
		s.Routes[neigh] = map[state.Address]state.Cost{id: l.Cost}
		s.Forwarding[neigh] = l.Port
		if isRouter(neigh) {
			s.Neighbours = append(s.Neighbours, state.Neighbour{Name: neigh, Port: l.Port})
		}
	}
	// cost to self is always zero
	s.Routes[id] = map[state.Address]state.Cost{id: 0}
	state.SortNeighbours(s.Neighbours)
	return s, nil
}

// BuildAdvertisement snapshots the router's own best cost to every known destination.
func BuildAdvertisement(s *state.RouterState) protocol.RouteUpdate {
	tbl := make(map[state.Address]state.Cost, len(s.Routes))
	for dst, row := range s.Routes {
		if cost, ok := row[s.Id]; ok {
			tbl[dst] = cost
		}
	}
	return protocol.RouteUpdate{
		Origin: s.Id,
		Table:  tbl,
	}
}

// Advertise sends the full distance vector to every neighbouring router.
func Advertise(s *state.RouterState, r Router) {
	update := BuildAdvertisement(s)
	for _, neigh := range s.Neighbours {
		r.SendRouteUpdate(neigh.Port, update)
	}
}

// ApplyUpdate merges a distance vector received from the neighbour named from. When the router's own
// cost to any destination strictly improves, the forwarding entry is repointed at that neighbour and
// a new advertisement is sent to every neighbouring router. It reports whether anything changed.
func ApplyUpdate(s *state.RouterState, r Router, update protocol.RouteUpdate, from state.Address) bool {
	// hosts never relay, only a neighbouring router can offer a path
	if _, ok := s.Neighbour(from); !ok {
		r.Log(DropUnknownNeighbour, "route update from unknown neighbour", "from", from, "origin", update.Origin)
		return false
	}
	link := s.Links[from]
	// record what the neighbour believes
	for dst, cost := range update.Table {
		row, ok := s.Routes[dst]
		if !ok {
			row = make(map[state.Address]state.Cost)
			s.Routes[dst] = row
		}
		row[from] = cost
	}

	changed := false
	for _, dst := range slices.Sorted(maps.Keys(update.Table)) {
		newCost := state.AddCost(link.Cost, update.Table[dst])
		// strictly better only, equal cost paths never displace the current choice
		if newCost < s.Cost(dst) {
			s.Routes[dst][s.Id] = newCost
			s.Forwarding[dst] = link.Port
			r.Log(RouteImproved, "route improved", "dst", dst, "via", from, "port", link.Port, "cost", newCost)
			changed = true
		}
	}

	if changed {
		r.Log(TableChanged, "routing table changed", "from", from, "routes", s.StringRoutes())
		Advertise(s, r)
	}
	return changed
}

// Lookup returns the outgoing port for dst.
func Lookup(s *state.RouterState, dst state.Address) (int, error) {
	port, ok := s.Forwarding[dst]
	if !ok {
		return 0, fmt.Errorf("%s has no route to %q: %w", s.Id, dst, state.ErrUnreachable)
	}
	return port, nil
}
