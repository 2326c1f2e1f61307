package protocol

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/encodeous/dvsim/state"
)

// RouteUpdate is a distance vector advertised by a router to its neighbours.
type RouteUpdate struct {
	Origin state.Address
	Table  map[state.Address]state.Cost
}

func (u RouteUpdate) String() string {
	return fmt.Sprintf("(origin: %s, table: %s)", u.Origin, formatTable(u.Table))
}

// formatTable renders the table as {dst:cost,dst:cost} with destinations sorted.
func formatTable(t map[state.Address]state.Cost) string {
	sb := strings.Builder{}
	sb.WriteByte('{')
	for i, dst := range slices.Sorted(maps.Keys(t)) {
		if i != 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(string(dst))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatUint(uint64(t[dst]), 10))
	}
	sb.WriteByte('}')
	return sb.String()
}

func checkKey(dst state.Address) error {
	if dst == "" || strings.ContainsAny(string(dst), "{}:,") || dst[0] == state.PadChar {
		return &state.FormatError{Field: "table", Reason: fmt.Sprintf("destination %q cannot be encoded", dst)}
	}
	return nil
}

func (c Codec) EncodeUpdate(u RouteUpdate) ([]byte, error) {
	origin, err := state.PadLeft("origin", string(u.Origin), c.Name)
	if err != nil {
		return nil, err
	}
	for dst := range u.Table {
		if err := checkKey(dst); err != nil {
			return nil, err
		}
	}
	table, err := state.PadLeft("table", formatTable(u.Table), c.Table)
	if err != nil {
		return nil, err
	}
	return []byte(origin + table), nil
}

func (c Codec) DecodeUpdate(b []byte) (RouteUpdate, error) {
	if len(b) != c.Name+c.Table {
		return RouteUpdate{}, &state.FormatError{
			Field:  "update",
			Reason: fmt.Sprintf("update is %d bytes, expected %d", len(b), c.Name+c.Table),
		}
	}
	origin := state.TrimPad(string(b[:c.Name]))
	table, err := parseTable(state.TrimPad(string(b[c.Name:])))
	if err != nil {
		return RouteUpdate{}, err
	}
	return RouteUpdate{
		Origin: state.Address(origin),
		Table:  table,
	}, nil
}

func parseTable(lit string) (map[state.Address]state.Cost, error) {
	malformed := func(reason string, args ...any) error {
		return &state.FormatError{Field: "table", Reason: fmt.Sprintf(reason, args...)}
	}
	body, ok := strings.CutPrefix(lit, "{")
	if !ok {
		return nil, malformed("literal %q does not start with '{'", lit)
	}
	body, ok = strings.CutSuffix(body, "}")
	if !ok {
		return nil, malformed("literal %q does not end with '}'", lit)
	}
	table := make(map[state.Address]state.Cost)
	if body == "" {
		return table, nil
	}
	for _, entry := range strings.Split(body, ",") {
		key, val, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, malformed("entry %q has no ':'", entry)
		}
		dst := state.Address(key)
		if err := checkKey(dst); err != nil {
			return nil, err
		}
		if _, dup := table[dst]; dup {
			return nil, malformed("duplicate destination %q", dst)
		}
		cost, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			return nil, malformed("cost of %q: %v", dst, err)
		}
		table[dst] = state.Cost(cost)
	}
	return table, nil
}
