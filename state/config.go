package state

import (
	"fmt"
	"os"
	"slices"

	"github.com/goccy/go-yaml"
)

var (
	TopologyPath = "topology.yaml"
	LogPath      = ""
	DebugAddr    = ""
)

// LinkCfg is a bidirectional link between port APort of node A and port BPort of node B.
type LinkCfg struct {
	A     Address `yaml:"a"`
	APort int     `yaml:"a_port"`
	B     Address `yaml:"b"`
	BPort int     `yaml:"b_port"`
	Cost  Cost    `yaml:"cost"`
}

// MessageCfg is a scripted host transmission.
type MessageCfg struct {
	From    Address `yaml:"from"`
	To      Address `yaml:"to"`
	Data    string  `yaml:"data"`
	DelayMs uint64  `yaml:"delay_ms,omitempty"`
}

// Topology describes a whole simulation instance.
type Topology struct {
	Widths      *Widths      `yaml:"widths,omitempty"`
	QueueSize   int          `yaml:"queue_size,omitempty"` // router interface capacity, 0 is unbounded
	LinkMtu     int          `yaml:"link_mtu,omitempty"`   // 0 disables the check
	Loss        float64      `yaml:"loss,omitempty"`       // per-frame drop probability on every link
	Hosts       []Address    `yaml:"hosts"`
	Routers     []Address    `yaml:"routers"`
	Links       []LinkCfg    `yaml:"links,omitempty"`
	Graph       []string     `yaml:"graph,omitempty"`
	DefaultCost Cost         `yaml:"default_cost,omitempty"`
	Messages    []MessageCfg `yaml:"messages,omitempty"`
}

func ParseTopology(data []byte) (*Topology, error) {
	var topo Topology
	err := yaml.Unmarshal(data, &topo)
	if err != nil {
		return nil, err
	}
	return &topo, nil
}

// ReadTopology reads, expands and validates a topology file.
func ReadTopology(path string) (*Topology, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	topo, err := ParseTopology(file)
	if err != nil {
		return nil, err
	}
	err = ExpandTopology(topo)
	if err != nil {
		return nil, err
	}
	err = TopologyValidator(topo)
	if err != nil {
		return nil, err
	}
	return topo, nil
}

// ExpandTopology fills in defaults and turns graph lines into links.
// Graph edges get the next free port on each side.
func ExpandTopology(t *Topology) error {
	if t.Widths == nil {
		w := DefaultWidths
		t.Widths = &w
	}
	if t.DefaultCost == 0 {
		t.DefaultCost = DefaultLinkCost
	}
	if len(t.Graph) == 0 {
		return nil
	}
	edges, err := ParseGraph(t.Graph, t.Nodes())
	if err != nil {
		return err
	}
	nextPort := make(map[Address]int)
	for _, l := range t.Links {
		nextPort[l.A] = max(nextPort[l.A], l.APort+1)
		nextPort[l.B] = max(nextPort[l.B], l.BPort+1)
	}
	for _, edge := range edges {
		if t.HasLink(edge.V1, edge.V2) {
			continue
		}
		t.Links = append(t.Links, LinkCfg{
			A:     edge.V1,
			APort: nextPort[edge.V1],
			B:     edge.V2,
			BPort: nextPort[edge.V2],
			Cost:  t.DefaultCost,
		})
		nextPort[edge.V1]++
		nextPort[edge.V2]++
	}
	t.Graph = nil
	return nil
}

func (t *Topology) Nodes() []Address {
	nodes := make([]Address, 0, len(t.Hosts)+len(t.Routers))
	nodes = append(nodes, t.Hosts...)
	nodes = append(nodes, t.Routers...)
	return nodes
}

func (t *Topology) IsRouter(node Address) bool {
	return slices.Contains(t.Routers, node)
}

func (t *Topology) IsHost(node Address) bool {
	return slices.Contains(t.Hosts, node)
}

func (t *Topology) HasLink(a, b Address) bool {
	return slices.ContainsFunc(t.Links, func(l LinkCfg) bool {
		return l.A == a && l.B == b || l.A == b && l.B == a
	})
}

// LinksOf returns the links touching node, oriented so that A is node.
func (t *Topology) LinksOf(node Address) []LinkCfg {
	out := make([]LinkCfg, 0)
	for _, l := range t.Links {
		if l.A == node {
			out = append(out, l)
		} else if l.B == node {
			out = append(out, LinkCfg{A: l.B, APort: l.BPort, B: l.A, BPort: l.APort, Cost: l.Cost})
		}
	}
	return out
}

// LinkCosts derives the local cost table handed to a router.
func (t *Topology) LinkCosts(router Address) LinkCosts {
	costs := make(LinkCosts)
	for _, l := range t.LinksOf(router) {
		if costs[l.B] == nil {
			costs[l.B] = make(map[int]Cost)
		}
		costs[l.B][l.APort] = l.Cost
	}
	return costs
}

func (t *Topology) String() string {
	b, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Sprintf("<invalid topology: %v>", err)
	}
	return string(b)
}
