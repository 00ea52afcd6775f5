package document

// NodeID identifies a node for the lifetime of its tree. Snapshots keep the IDs of the
// live nodes they were copied from, so geometry computed on a snapshot can be looked up
// with the live node.
type NodeID uint64

// Node is one element of the document tree.
//
// Live nodes are owned by a Tree and every accessor synchronises with it. Snapshot nodes
// are detached copies and never change.
type Node struct {
	id       NodeID
	kind     Kind
	props    Props
	children []*Node
	parent   *Node
	tree     *Tree
}

func (n *Node) lock() func() {
	if n.tree == nil {
		return func() {}
	}
	n.tree.mu.RLock()
	return n.tree.mu.RUnlock
}

// ID returns the stable node identifier.
func (n *Node) ID() NodeID { return n.id }

// Kind returns the node tag.
func (n *Node) Kind() Kind { return n.kind }

// Props returns the node's typed properties.
func (n *Node) Props() Props {
	defer n.lock()()
	return n.props
}

// Parent returns the parent node, or nil for the root and detached nodes.
func (n *Node) Parent() *Node {
	defer n.lock()()
	return n.parent
}

// Children returns a copy of the ordered child list.
func (n *Node) Children() []*Node {
	defer n.lock()()
	return append([]*Node(nil), n.children...)
}

// Len returns the number of children.
func (n *Node) Len() int {
	defer n.lock()()
	return len(n.children)
}

// Walk visits n and its descendants depth-first, stopping when fn returns false.
// It must only be used on snapshot nodes.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

func (n *Node) indexOf(child *Node) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

func (n *Node) removeAt(i int) {
	n.children = append(n.children[:i], n.children[i+1:]...)
}

// isAncestorOf reports whether n is other or one of its ancestors.
func (n *Node) isAncestorOf(other *Node) bool {
	for cur := other; cur != nil; cur = cur.parent {
		if cur == n {
			return true
		}
	}
	return false
}

func (n *Node) clone(parent *Node) *Node {
	cp := &Node{
		id:     n.id,
		kind:   n.kind,
		props:  cloneProps(n.props),
		parent: parent,
	}
	if len(n.children) > 0 {
		cp.children = make([]*Node, len(n.children))
		for i, c := range n.children {
			cp.children[i] = c.clone(cp)
		}
	}
	return cp
}
