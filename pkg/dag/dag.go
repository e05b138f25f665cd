// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dag

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// DAG is a directed acyclic graph of named nodes linked by their dependencies.
type DAG struct {
	// Nodes maps a node name to its node.
	Nodes map[string]*defaultNode
	// allowMarkArbitraryNodesAsDone lets GetSchedulable accept done nodes whose
	// predecessors are not all done.
	allowMarkArbitraryNodesAsDone bool
}

// NamedNode is what callers hand to New.
type NamedNode interface {
	// NodeName uniquely identifies a node
	NodeName() string
	// PrevNodeNames are the nodes that must finish first
	PrevNodeNames() []string
}

// Node is a linked node of a built DAG.
type Node interface {
	NamedNode
	PrevNodes() []Node
	NextNodes() []Node
	NextNodeNames() []string
}

type Option func(*DAG)

func WithAllowMarkArbitraryNodesAsDone(allow bool) Option {
	return func(g *DAG) {
		g.allowMarkArbitraryNodesAsDone = allow
	}
}

// New links the given nodes and rejects duplicates, dangling references and cycles.
func New(nodes []NamedNode, ops ...Option) (*DAG, error) {
	g := DAG{
		Nodes: map[string]*defaultNode{},
	}
	for _, op := range ops {
		op(&g)
	}

	for _, n := range nodes {
		if err := g.addNode(n); err != nil {
			return nil, errors.Errorf("failed to add node %q to DAG, err: %v", n.NodeName(), err)
		}
	}

	// link in a stable order so cycle paths are reproducible
	for _, name := range g.sortedNames() {
		n := g.Nodes[name]
		for _, prevNodeName := range n.PrevNodeNames() {
			if err := g.addLink(n, prevNodeName); err != nil {
				return nil, errors.Errorf("failed to add link between %q and %q, err: %v", n.NodeName(), prevNodeName, err)
			}
		}
	}
	return &g, nil
}

// Len returns the number of nodes.
func (g *DAG) Len() int {
	return len(g.Nodes)
}

// TopologicalOrder returns every node name such that each node comes after all
// of its predecessors. Ties are broken alphabetically.
func (g *DAG) TopologicalOrder() []string {
	inDegree := make(map[string]int, len(g.Nodes))
	for name, n := range g.Nodes {
		inDegree[name] = len(n.prevNodes)
	}

	var ready []string
	for name, d := range inDegree {
		if d == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.Nodes))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		var unlocked []string
		for _, next := range g.Nodes[name].nextNodes {
			inDegree[next.name]--
			if inDegree[next.name] == 0 {
				unlocked = append(unlocked, next.name)
			}
		}
		ready = append(ready, unlocked...)
		sort.Strings(ready)
	}
	return order
}

// Ancestors returns the names of every node the given node transitively depends on.
func (g *DAG) Ancestors(name string) ([]string, error) {
	n, ok := g.Nodes[name]
	if !ok {
		return nil, errors.Errorf("node %q not found in DAG", name)
	}
	seen := map[string]struct{}{}
	var walk func(*defaultNode)
	walk = func(cur *defaultNode) {
		for _, prev := range cur.prevNodes {
			if _, ok := seen[prev.name]; ok {
				continue
			}
			seen[prev.name] = struct{}{}
			walk(prev)
		}
	}
	walk(n)

	result := make([]string, 0, len(seen))
	for s := range seen {
		result = append(result, s)
	}
	sort.Strings(result)
	return result, nil
}

func (g *DAG) sortedNames() []string {
	names := make([]string, 0, len(g.Nodes))
	for name := range g.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *DAG) addNode(n NamedNode) error {
	if n.NodeName() == "" {
		return errors.New("node name is empty")
	}
	if _, ok := g.Nodes[n.NodeName()]; ok {
		return errors.Errorf("duplicate node: %s", n.NodeName())
	}
	g.Nodes[n.NodeName()] = &defaultNode{name: n.NodeName(), prevNodeNames: n.PrevNodeNames()}
	return nil
}

func (g *DAG) addLink(n *defaultNode, prevNodeName string) error {
	prevNode, ok := g.Nodes[prevNodeName]
	if !ok {
		return errors.Errorf("node %q depends on an nonexistent node %q", n.NodeName(), prevNodeName)
	}
	if err := validateNodes(prevNode, n); err != nil {
		return errors.Errorf("failed to create link from %q to %q, err: %v", prevNode.NodeName(), n.NodeName(), err)
	}
	n.prevNodes = append(n.prevNodes, prevNode)
	prevNode.nextNodes = append(prevNode.nextNodes, n)
	return nil
}

func validateNodes(from, to Node) error {
	if from.NodeName() == to.NodeName() {
		return errors.Errorf("self cycle detected: node %q depends on itself", from.NodeName())
	}

	path := []string{to.NodeName(), from.NodeName()}
	if err := visit(to, from.PrevNodes(), path); err != nil {
		return errors.Errorf("cycle detected: %v", err)
	}
	return nil
}

func visit(startNode Node, prev []Node, visitedPath []string) error {
	for _, n := range prev {
		path := append(visitedPath[:len(visitedPath):len(visitedPath)], n.NodeName())
		if n.NodeName() == startNode.NodeName() {
			return errors.Errorf("%s", getVisitedPath(path))
		}
		if err := visit(startNode, n.PrevNodes(), path); err != nil {
			return err
		}
	}
	return nil
}

// getVisitedPath reverses the path since it was collected along prev pointers.
func getVisitedPath(path []string) string {
	for i := len(path)/2 - 1; i >= 0; i-- {
		opp := len(path) - 1 - i
		path[i], path[opp] = path[opp], path[i]
	}
	return strings.Join(path, " -> ")
}

type defaultNode struct {
	name          string
	prevNodeNames []string

	prevNodes []*defaultNode
	nextNodes []*defaultNode
}

func (n *defaultNode) NodeName() string {
	return n.name
}

func (n *defaultNode) PrevNodeNames() []string {
	return n.prevNodeNames
}

func (n *defaultNode) PrevNodes() []Node {
	r := make([]Node, 0, len(n.prevNodes))
	for _, prev := range n.prevNodes {
		r = append(r, prev)
	}
	return r
}

func (n *defaultNode) NextNodeNames() []string {
	r := make([]string, 0, len(n.nextNodes))
	for _, next := range n.nextNodes {
		r = append(r, next.name)
	}
	return r
}

func (n *defaultNode) NextNodes() []Node {
	r := make([]Node, 0, len(n.nextNodes))
	for _, next := range n.nextNodes {
		r = append(r, next)
	}
	return r
}
