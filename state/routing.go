package state

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// RoutingTable maps a destination to the cost each asserter (a neighbour, or the router itself)
// currently believes it has to that destination.
type RoutingTable map[Address]map[Address]Cost

// ForwardingTable maps a destination to the outgoing port.
type ForwardingTable map[Address]int

// LinkCosts maps each neighbour to the single port it is reached through and the cost of that link.
type LinkCosts map[Address]map[int]Cost

type Neighbour struct {
	Name Address
	Port int
}

type Link struct {
	Port int
	Cost Cost
}

// RouterState must only be accessed from the router's own goroutine.
type RouterState struct {
	Id         Address
	Links      map[Address]Link
	Neighbours []Neighbour // directly connected routers, sorted by name
	Routes     RoutingTable
	Forwarding ForwardingTable
}

// Flatten checks that each neighbour maps to exactly one port and returns the link per neighbour.
func (c LinkCosts) Flatten() (map[Address]Link, error) {
	links := make(map[Address]Link, len(c))
	ports := make(map[int]Address)
	for neigh, ifaces := range c {
		if len(ifaces) != 1 {
			return nil, fmt.Errorf("neighbour %s must map to exactly one interface, got %d", neigh, len(ifaces))
		}
		for port, cost := range ifaces {
			if other, ok := ports[port]; ok {
				return nil, fmt.Errorf("port %d is shared by %s and %s", port, other, neigh)
			}
			ports[port] = neigh
			links[neigh] = Link{Port: port, Cost: cost}
		}
	}
	return links, nil
}

// Cost returns the router's own believed cost to dst.
func (s *RouterState) Cost(dst Address) Cost {
	row, ok := s.Routes[dst]
	if !ok {
		return INF
	}
	c, ok := row[s.Id]
	if !ok {
		return INF
	}
	return c
}

// Destinations returns every destination in the routing table, sorted.
func (s *RouterState) Destinations() []Address {
	return slices.Sorted(maps.Keys(s.Routes))
}

// Neighbour looks up a directly connected router by name.
func (s *RouterState) Neighbour(name Address) (Neighbour, bool) {
	idx := slices.IndexFunc(s.Neighbours, func(n Neighbour) bool {
		return n.Name == name
	})
	if idx == -1 {
		return Neighbour{}, false
	}
	return s.Neighbours[idx], true
}

// Clone returns a deep copy of the routing table.
func (t RoutingTable) Clone() RoutingTable {
	out := make(RoutingTable, len(t))
	for dst, row := range t {
		out[dst] = maps.Clone(row)
	}
	return out
}

func (s *RouterState) StringRoutes() string {
	lines := make([]string, 0, len(s.Routes))
	for _, dst := range s.Destinations() {
		if dst == s.Id {
			continue
		}
		port, ok := s.Forwarding[dst]
		via := "-"
		if ok {
			via = fmt.Sprint(port)
		}
		lines = append(lines, fmt.Sprintf("%s via %s (cost: %s)", dst, via, s.Cost(dst)))
	}
	return strings.Join(lines, "\n")
}

func SortNeighbours(n []Neighbour) {
	slices.SortFunc(n, func(a, b Neighbour) int {
		return cmp.Compare(a.Name, b.Name)
	})
}
