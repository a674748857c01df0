package manager

import (
	"sort"
	"strings"

	"mercator-hq/deepreload/pkg/unit"
)

// Graph is the import graph of the loaded units, built from the imports
// each unit recorded during its last execution.
type Graph struct {
	// Roots are the names the graph was built from.
	Roots []string

	// Nodes maps unit names to their node.
	Nodes map[string]*Node
}

// Node is one unit in a Graph.
type Node struct {
	Name       string
	File       string
	Generation uint64

	// Deps are the units this unit imported, sorted.
	Deps []string

	// DependedBy are the units that imported this one, sorted.
	DependedBy []string

	// Depth is the shortest import distance from a root.
	Depth int
}

// BuildGraph walks table from roots. Roots that are not in the table are
// kept in Roots but have no node.
func BuildGraph(table *unit.Table, roots []string) *Graph {
	g := &Graph{
		Roots: append([]string(nil), roots...),
		Nodes: make(map[string]*Node),
	}

	queue := make([]string, 0, len(roots))
	for _, r := range roots {
		if u, ok := table.Get(r); ok && g.Nodes[r] == nil {
			g.Nodes[r] = newNode(u, 0)
			queue = append(queue, r)
		}
	}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		node := g.Nodes[name]

		for _, dep := range node.Deps {
			child, ok := g.Nodes[dep]
			if !ok {
				u, found := table.Get(dep)
				if !found {
					continue
				}
				child = newNode(u, node.Depth+1)
				g.Nodes[dep] = child
				queue = append(queue, dep)
			}
			child.DependedBy = append(child.DependedBy, name)
		}
	}

	for _, n := range g.Nodes {
		sort.Strings(n.DependedBy)
	}
	return g
}

func newNode(u *unit.Unit, depth int) *Node {
	deps := u.Deps()
	sort.Strings(deps)
	return &Node{
		Name:       u.Name,
		File:       u.File,
		Generation: u.Generation(),
		Deps:       deps,
		Depth:      depth,
	}
}

// Names returns the name of every node, sorted.
func (g *Graph) Names() []string {
	out := make([]string, 0, len(g.Nodes))
	for name := range g.Nodes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Reachable returns every unit reachable from name, name included, sorted.
func (g *Graph) Reachable(name string) []string {
	if _, ok := g.Nodes[name]; !ok {
		return nil
	}

	seen := map[string]bool{name: true}
	stack := []string{name}
	for len(stack) > 0 {
		n := g.Nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		for _, dep := range n.Deps {
			if _, ok := g.Nodes[dep]; ok && !seen[dep] {
				seen[dep] = true
				stack = append(stack, dep)
			}
		}
	}

	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Affected returns the roots whose reachable units include one of changed,
// or a package one of changed belongs to.
func (g *Graph) Affected(changed []string) []string {
	var out []string
	for _, root := range g.Roots {
		if g.reaches(root, changed) {
			out = append(out, root)
		}
	}
	return out
}

func (g *Graph) reaches(root string, changed []string) bool {
	for _, name := range g.Reachable(root) {
		for _, c := range changed {
			if name == c || strings.HasPrefix(c, name+unit.Separator) {
				return true
			}
		}
	}
	return false
}

// Cycles returns the import cycles in the graph, each as the list of unit
// names along it starting from its smallest name. Each cycle is reported
// once.
func (g *Graph) Cycles() [][]string {
	names := make([]string, 0, len(g.Nodes))
	for n := range g.Nodes {
		names = append(names, n)
	}
	sort.Strings(names)

	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int, len(names))
	seen := make(map[string]bool)
	var path []string
	var cycles [][]string

	var visit func(name string)
	visit = func(name string) {
		state[name] = active
		path = append(path, name)

		for _, dep := range g.Nodes[name].Deps {
			if _, ok := g.Nodes[dep]; !ok {
				continue
			}
			switch state[dep] {
			case unvisited:
				visit(dep)
			case active:
				cycle := rotate(cycleFrom(path, dep))
				if key := strings.Join(cycle, " "); !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
			}
		}

		path = path[:len(path)-1]
		state[name] = done
	}

	for _, n := range names {
		if state[n] == unvisited {
			visit(n)
		}
	}
	return cycles
}

func cycleFrom(path []string, start string) []string {
	for i, n := range path {
		if n == start {
			return append([]string(nil), path[i:]...)
		}
	}
	return nil
}

// rotate starts cycle at its smallest name.
func rotate(cycle []string) []string {
	min := 0
	for i, n := range cycle {
		if n < cycle[min] {
			min = i
		}
	}
	return append(cycle[min:], cycle[:min]...)
}
