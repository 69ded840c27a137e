// Package topology answers connectivity questions about a built network:
// which lines touch a substation and where they lead.
package topology

import (
	"errors"
	"sort"

	"gridmap/internal/network"
)

var ErrNotFound = errors.New("substation not found")

// Connection is a line seen from one of its endpoints. ID is the line's
// position in its operator section.
type Connection struct {
	ID          int    `json:"id"`
	Line        string `json:"name"`
	ConnectedTo string `json:"connected_to"`
	Voltage     string `json:"voltage,omitempty"`
	Description string `json:"description,omitempty"`

	*network.Electrical
}

type Summary struct {
	Operator    network.Operator   `json:"operator"`
	Substation  network.Substation `json:"substation"`
	Connections []Connection       `json:"connected_lines"`
}

type nodeKey struct {
	op   network.Operator
	name string
}

// Graph is an undirected adjacency list per operator. It is immutable once
// built and safe for concurrent reads.
type Graph struct {
	nodes map[nodeKey]network.Substation
	order map[network.Operator][]string
	adj   map[nodeKey][]Connection
}

// Build indexes every operator section of doc. Lines whose endpoints are
// not both substations of the same operator are ignored.
func Build(doc network.PartitionedDocument) *Graph {
	g := &Graph{
		nodes: map[nodeKey]network.Substation{},
		order: map[network.Operator][]string{},
		adj:   map[nodeKey][]Connection{},
	}
	for _, op := range network.Operators() {
		section := doc.Section(op)
		if section == nil {
			continue
		}
		for _, s := range section.Substations {
			k := nodeKey{op, s.Name}
			if _, dup := g.nodes[k]; dup {
				continue
			}
			g.nodes[k] = s
			g.order[op] = append(g.order[op], s.Name)
		}
		for i, l := range section.Lines {
			from := nodeKey{op, l.FromBus}
			to := nodeKey{op, l.ToBus}
			if _, ok := g.nodes[from]; !ok {
				continue
			}
			if _, ok := g.nodes[to]; !ok {
				continue
			}
			g.adj[from] = append(g.adj[from], connection(i, l, l.ToBus))
			if from != to {
				g.adj[to] = append(g.adj[to], connection(i, l, l.FromBus))
			}
		}
	}
	return g
}

func connection(id int, l network.Line, other string) Connection {
	return Connection{
		ID:          id,
		Line:        l.Name,
		ConnectedTo: other,
		Voltage:     l.Voltage.String(),
		Description: l.Description,
		Electrical:  l.Electrical,
	}
}

func (g *Graph) Len() int {
	return len(g.nodes)
}

// Substations returns op's substations in document order.
func (g *Graph) Substations(op network.Operator) []network.Substation {
	names := g.order[op]
	out := make([]network.Substation, 0, len(names))
	for _, n := range names {
		out = append(out, g.nodes[nodeKey{op, n}])
	}
	return out
}

// Connections lists the lines touching a substation, sorted by line name.
func (g *Graph) Connections(op network.Operator, name string) []Connection {
	conns := append([]Connection(nil), g.adj[nodeKey{op, name}]...)
	sort.SliceStable(conns, func(i, j int) bool {
		return conns[i].Line < conns[j].Line
	})
	return conns
}

// Summary looks a substation up by name. An empty op searches every
// operator in render order and returns the first match.
func (g *Graph) Summary(op network.Operator, name string) (Summary, error) {
	ops := network.Operators()
	if op != "" {
		ops = []network.Operator{op}
	}
	for _, o := range ops {
		s, ok := g.nodes[nodeKey{o, name}]
		if !ok {
			continue
		}
		conns := g.Connections(o, name)
		if conns == nil {
			conns = []Connection{}
		}
		return Summary{Operator: o, Substation: s, Connections: conns}, nil
	}
	return Summary{}, ErrNotFound
}

// Path returns the substation names on a shortest path between two
// substations of op, inclusive, or nil when they are not connected.
func (g *Graph) Path(op network.Operator, from, to string) []string {
	start := nodeKey{op, from}
	goal := nodeKey{op, to}
	if _, ok := g.nodes[start]; !ok {
		return nil
	}
	if _, ok := g.nodes[goal]; !ok {
		return nil
	}

	parent := map[string]string{}
	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			path := []string{to}
			for n := to; n != from; {
				n = parent[n]
				path = append(path, n)
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path
		}
		for _, c := range g.adj[nodeKey{op, cur}] {
			if visited[c.ConnectedTo] {
				continue
			}
			visited[c.ConnectedTo] = true
			parent[c.ConnectedTo] = cur
			queue = append(queue, c.ConnectedTo)
		}
	}
	return nil
}
