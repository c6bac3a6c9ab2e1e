package registry

import "sort"

// Leaf binds a registered command at its final node.
type Leaf struct {
	Endpoint *EndpointDefinition
	Executor Executor
}

// Node is one position in the command tree. A node has at most one variable child.
type Node struct {
	literals    map[string]*Node
	variableKey string
	variable    *Node
	leaves      []*Leaf
}

func newNode() *Node {
	return &Node{literals: make(map[string]*Node)}
}

// Literal returns the literal child named name.
func (node *Node) Literal(name string) (*Node, bool) {
	child, found := node.literals[name]
	return child, found
}

// LiteralNames lists literal child names in sorted order.
func (node *Node) LiteralNames() []string {
	names := make([]string, 0, len(node.literals))
	for name := range node.literals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Variable returns the variable child and its resolver type key.
func (node *Node) Variable() (string, *Node, bool) {
	if node.variable == nil {
		return "", nil, false
	}
	return node.variableKey, node.variable, true
}

// Leaf returns the command registered for method at this node.
func (node *Node) Leaf(method string) (*Leaf, bool) {
	for _, leaf := range node.leaves {
		if leaf.Endpoint.Method() == method {
			return leaf, true
		}
	}
	return nil, false
}

// Leaves returns the commands at this node in registration order.
func (node *Node) Leaves() []*Leaf {
	return append([]*Leaf{}, node.leaves...)
}

// PrimaryLeaf returns the first command registered at this node.
func (node *Node) PrimaryLeaf() (*Leaf, bool) {
	if len(node.leaves) == 0 {
		return nil, false
	}
	return node.leaves[0], true
}

// descend is the read-only walk used to validate a registration before anything is attached.
func (node *Node) descend(segment Segment) (*Node, error) {
	if segment.Kind == SegmentVariable {
		if node.variable == nil {
			return nil, nil
		}
		if node.variableKey != segment.Value {
			return nil, ErrAmbiguousBranch
		}
		return node.variable, nil
	}
	return node.literals[segment.Value], nil
}

// attach walks segments creating missing children and returns the final node.
func (node *Node) attach(segments []Segment) *Node {
	current := node
	for _, segment := range segments {
		if segment.Kind == SegmentVariable {
			if current.variable == nil {
				current.variableKey = segment.Value
				current.variable = newNode()
			}
			current = current.variable
			continue
		}
		child, found := current.literals[segment.Value]
		if !found {
			child = newNode()
			current.literals[segment.Value] = child
		}
		current = child
	}
	return current
}
