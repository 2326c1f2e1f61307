package state

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// graphLine is one non-empty line of a graph. group is only set on definitions.
type graphLine struct {
	text    string
	group   string
	symbols []string
}

func splitSymbols(list string) []string {
	out := make([]string, 0)
	for _, sym := range strings.Split(list, ",") {
		if sym = strings.TrimSpace(sym); sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

/*
ParseGraph turns the shorthand link lines of a topology into edges between nodes:

	core = RA, RB, RC     // defines the group "core"
	edge = RD, core       // groups may contain groups, in any order
	core, core            // naming a group twice links its members to each other
	H1, RA                // H1 and RA are linked
	core, RD              // RD is linked to each member of core

Every name on a line is linked to every other name on it. Names are case-sensitive.
The result is sorted and has no duplicates.
*/
func ParseGraph(graph []string, nodes []Address) ([]Pair[Address, Address], error) {
	isNode := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		isNode[string(n)] = true
	}

	// groups may be used above their definition, so collect every name first
	members := make(map[string][]string)
	lines := make([]graphLine, 0, len(graph))
	for _, text := range graph {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		l := graphLine{text: text}
		list := text
		if name, rest, ok := strings.Cut(text, "="); ok {
			if strings.Contains(rest, "=") {
				return nil, fmt.Errorf("graph line %q: a group definition has exactly one '='", text)
			}
			l.group = strings.TrimSpace(name)
			switch _, dup := members[l.group]; {
			case l.group == "":
				return nil, fmt.Errorf("graph line %q: group has no name", text)
			case isNode[l.group]:
				return nil, fmt.Errorf("group %s shadows the node of the same name", l.group)
			case dup:
				return nil, fmt.Errorf("group %s is defined twice", l.group)
			}
			members[l.group] = nil
			list = rest
		}
		l.symbols = splitSymbols(list)
		lines = append(lines, l)
	}

	for _, l := range lines {
		if len(l.symbols) == 0 {
			return nil, fmt.Errorf("graph line %q: empty node or group list", l.text)
		}
		for _, sym := range l.symbols {
			if _, ok := members[sym]; !ok && !isNode[sym] {
				return nil, fmt.Errorf("graph line %q: unknown node or group %q", l.text, sym)
			}
		}
		if l.group != "" {
			members[l.group] = l.symbols
		} else if len(l.symbols) < 2 {
			return nil, fmt.Errorf("graph line %q must name at least two nodes or groups", l.text)
		}
	}

	resolved := make(map[string][]Address)
	var path []string
	var resolve func(sym string) ([]Address, error)
	resolve = func(sym string) ([]Address, error) {
		if isNode[sym] {
			return []Address{Address(sym)}, nil
		}
		if out, ok := resolved[sym]; ok {
			return out, nil
		}
		if i := slices.Index(path, sym); i != -1 {
			cycle := slices.Clone(path[i:])
			slices.Sort(cycle)
			return nil, fmt.Errorf("groups form a cycle: %v", cycle)
		}
		path = append(path, sym)
		defer func() {
			path = path[:len(path)-1]
		}()
		out := make([]Address, 0)
		for _, m := range members[sym] {
			sub, err := resolve(m)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		slices.Sort(out)
		out = slices.Compact(out)
		resolved[sym] = out
		return out, nil
	}
	for _, g := range slices.Sorted(maps.Keys(members)) {
		if _, err := resolve(g); err != nil {
			return nil, err
		}
	}

	pairs := make([]Pair[Address, Address], 0)
	for _, l := range lines {
		if l.group != "" {
			continue
		}
		for i, a := range l.symbols {
			for _, b := range l.symbols[i+1:] {
				xs, _ := resolve(a)
				ys, _ := resolve(b)
				for _, x := range xs {
					for _, y := range ys {
						if x != y {
							pairs = append(pairs, MakeSortedPair(x, y))
						}
					}
				}
			}
		}
	}
	SortPairs(pairs)
	return slices.Compact(pairs), nil
}
