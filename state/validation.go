package state

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
)

var namePattern, _ = regexp.Compile("^[0-9A-Za-z._-]+$")

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

// NameValidator checks that a node name is representable in both the destination and router name fields.
func NameValidator(s Address, w Widths) error {
	if !namePattern.MatchString(string(s)) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if s[0] == PadChar {
		return fmt.Errorf("%s is not a valid name, must not start with %q", s, PadChar)
	}
	if limit := min(w.Dest, w.Name); len(s) > limit {
		return fmt.Errorf("len(\"%s\") = %d > %d is too long", s, len(s), limit)
	}
	return nil
}

var costDigits = len(strconv.FormatUint(uint64(INFM), 10))

// TableLen is the length of the longest distance table literal a router can advertise, when it
// has a route of the largest finite cost to every node.
func TableLen(nodes []Address) int {
	n := 2
	for i, node := range nodes {
		if i != 0 {
			n++
		}
		n += len(node) + 1 + costDigits
	}
	return n
}

func TopologyValidator(t *Topology) error {
	w := DefaultWidths
	if t.Widths != nil {
		w = *t.Widths
	}
	if err := w.Validate(); err != nil {
		return err
	}
	if t.QueueSize < 0 {
		return fmt.Errorf("queue_size must not be negative")
	}
	if t.LinkMtu < 0 {
		return fmt.Errorf("link_mtu must not be negative")
	}
	if t.Loss < 0 || t.Loss >= 1 {
		return fmt.Errorf("loss must be in [0, 1), got %v", t.Loss)
	}
	if len(t.Routers) == 0 {
		return fmt.Errorf("topology must contain at least one router")
	}

	nodes := t.Nodes()
	seen := make([]Address, 0, len(nodes))
	for _, node := range nodes {
		if err := NameValidator(node, w); err != nil {
			return err
		}
		if slices.Contains(seen, node) {
			return fmt.Errorf("duplicate node name: %s", node)
		}
		seen = append(seen, node)
	}
	if need := TableLen(nodes); need > w.Table {
		return fmt.Errorf("table width %d cannot hold the distance table of %d nodes, needs %d", w.Table, len(nodes), need)
	}

	edges := make([]Pair[Address, Address], 0)
	ports := make(map[Pair[Address, int]]bool)
	for _, l := range t.Links {
		if !slices.Contains(nodes, l.A) {
			return fmt.Errorf("node %s not defined", l.A)
		}
		if !slices.Contains(nodes, l.B) {
			return fmt.Errorf("node %s not defined", l.B)
		}
		if l.A == l.B {
			return fmt.Errorf("link from %s to itself", l.A)
		}
		if l.Cost == 0 || l.Cost >= INFM {
			return fmt.Errorf("link %s-%s has invalid cost %d", l.A, l.B, l.Cost)
		}
		if l.APort < 0 || l.BPort < 0 {
			return fmt.Errorf("link %s-%s has a negative port", l.A, l.B)
		}
		edge := MakeSortedPair(l.A, l.B)
		if slices.Contains(edges, edge) {
			return fmt.Errorf("duplicate edge found: %s, %s", edge.V1, edge.V2)
		}
		edges = append(edges, edge)
		for _, p := range []Pair[Address, int]{{l.A, l.APort}, {l.B, l.BPort}} {
			if ports[p] {
				return fmt.Errorf("port %d of %s is used by more than one link", p.V2, p.V1)
			}
			ports[p] = true
		}
	}

	for _, host := range t.Hosts {
		links := t.LinksOf(host)
		if len(links) != 1 {
			return fmt.Errorf("host %s must have exactly one link, has %d", host, len(links))
		}
		if links[0].APort != 0 {
			return fmt.Errorf("host %s must use port 0", host)
		}
	}

	for _, msg := range t.Messages {
		if !t.IsHost(msg.From) {
			return fmt.Errorf("message sender %s is not a host", msg.From)
		}
		if !slices.Contains(nodes, msg.To) {
			return fmt.Errorf("message destination %s not defined", msg.To)
		}
	}
	return nil
}
