package dag

import (
	"sort"

	"github.com/pkg/errors"
)

// GetSchedulable returns the nodes whose predecessors are all in done and
// which are not themselves done.
func (g *DAG) GetSchedulable(done ...string) (map[string]Node, error) {
	doneSet, err := g.toSet(done...)
	if err != nil {
		return nil, err
	}

	result := make(map[string]Node)
	visited := map[string]struct{}{}
	for _, root := range g.roots() {
		for _, name := range findSchedulable(root, visited, doneSet) {
			result[name] = g.Nodes[name]
		}
	}

	if !g.allowMarkArbitraryNodesAsDone {
		var unreachable []string
		for name := range doneSet {
			if _, ok := visited[name]; !ok {
				unreachable = append(unreachable, name)
			}
		}
		if len(unreachable) > 0 {
			sort.Strings(unreachable)
			return nil, errors.Errorf("some done nodes not visited: %v", unreachable)
		}
	}
	return result, nil
}

// GetSchedulableNodeNames is GetSchedulable returning sorted names.
func (g *DAG) GetSchedulableNodeNames(done ...string) ([]string, error) {
	m, err := g.GetSchedulable(done...)
	if err != nil {
		return nil, err
	}
	result := make([]string, 0, len(m))
	for name := range m {
		result = append(result, name)
	}
	sort.Strings(result)
	return result, nil
}

func (g *DAG) roots() []*defaultNode {
	var roots []*defaultNode
	for _, name := range g.sortedNames() {
		if n := g.Nodes[name]; len(n.prevNodes) == 0 {
			roots = append(roots, n)
		}
	}
	return roots
}

func findSchedulable(n *defaultNode, visited, done map[string]struct{}) []string {
	if _, ok := visited[n.name]; ok {
		return nil
	}

	if _, ok := done[n.name]; ok {
		visited[n.name] = struct{}{}
		var schedulable []string
		for _, next := range n.nextNodes {
			schedulable = append(schedulable, findSchedulable(next, visited, done)...)
		}
		return schedulable
	}

	// a node that is not done is only marked visited once all of its
	// predecessors are done, otherwise a later path could still unlock it
	for _, prev := range n.prevNodes {
		if _, ok := done[prev.name]; !ok {
			return nil
		}
	}
	visited[n.name] = struct{}{}
	return []string{n.name}
}

func (g *DAG) toSet(names ...string) (map[string]struct{}, error) {
	m := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := g.Nodes[name]; !ok {
			return nil, errors.Errorf("node %q not found in DAG", name)
		}
		m[name] = struct{}{}
	}
	return m, nil
}
