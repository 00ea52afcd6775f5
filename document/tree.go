// Package document holds the mutable node tree rendered by a container.
package document

import (
	"fmt"
	"sync"
)

// Tree owns exactly one Root node for its whole lifetime.
//
// Mutations take the write lock and mark the tracker dirty before returning.
// Snapshot takes the read lock only while copying.
type Tree struct {
	mu      sync.RWMutex
	root    *Node
	nextID  NodeID
	tracker *Tracker
}

// Snapshot is an immutable deep copy of the tree taken at one mutation generation.
type Snapshot struct {
	Root       *Node
	Generation uint64
}

// NewTree allocates a tree with its root node. The tree starts dirty.
func NewTree() *Tree {
	t := &Tree{tracker: NewTracker()}
	t.nextID = 1
	t.root = &Node{id: t.nextID, kind: KindRoot, props: rootProps{}, tree: t}
	return t
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// Tracker exposes the mutation tracker.
func (t *Tree) Tracker() *Tracker { return t.tracker }

// IsDirty reports whether the tree changed since the last successful render.
func (t *Tree) IsDirty() bool { return t.tracker.IsDirty() }

// CreateNode allocates a detached node owned by this tree. nil props select the kind's defaults.
func (t *Tree) CreateNode(kind Kind, props Props) (*Node, error) {
	if !kind.Creatable() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidNodeKind, kind)
	}
	if props == nil {
		props = zeroProps(kind)
	} else if props.Kind() != kind {
		return nil, fmt.Errorf("%w: %s props for %s node", ErrPropsMismatch, props.Kind(), kind)
	}

	t.mu.Lock()
	t.nextID++
	n := &Node{id: t.nextID, kind: kind, props: props, tree: t}
	t.tracker.MarkDirty()
	t.mu.Unlock()

	return n, nil
}

// Attach appends child to parent's children.
func (t *Tree) Attach(parent, child *Node) error {
	return t.insert(parent, child, -1)
}

// Insert places child at index among parent's children. Out of range indexes are clamped.
func (t *Tree) Insert(parent, child *Node, index int) error {
	if index < 0 {
		index = 0
	}
	return t.insert(parent, child, index)
}

func (t *Tree) insert(parent, child *Node, index int) error {
	if err := t.owns(parent, child); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if child == t.root || child.isAncestorOf(parent) {
		return fmt.Errorf("%w: %s#%d is an ancestor of %s#%d", ErrCyclicAttachment, child.kind, child.id, parent.kind, parent.id)
	}
	if old := child.parent; old != nil {
		if i := old.indexOf(child); i >= 0 {
			old.removeAt(i)
		}
	}
	if index < 0 || index > len(parent.children) {
		index = len(parent.children)
	}
	parent.children = append(parent.children, nil)
	copy(parent.children[index+1:], parent.children[index:])
	parent.children[index] = child
	child.parent = parent

	t.tracker.MarkDirty()
	return nil
}

// Detach removes child from parent. The tree and dirty flag are unchanged on error.
func (t *Tree) Detach(parent, child *Node) error {
	if err := t.owns(parent, child); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	i := parent.indexOf(child)
	if i < 0 {
		return fmt.Errorf("%w: %s#%d under %s#%d", ErrNotAChild, child.kind, child.id, parent.kind, parent.id)
	}
	parent.removeAt(i)
	child.parent = nil

	t.tracker.MarkDirty()
	return nil
}

// SetProps replaces the properties of a node.
func (t *Tree) SetProps(n *Node, props Props) error {
	if err := t.owns(n); err != nil {
		return err
	}
	if props == nil || props.Kind() != n.kind {
		return fmt.Errorf("%w: cannot set props on %s node", ErrPropsMismatch, n.kind)
	}

	t.mu.Lock()
	n.props = props
	t.tracker.MarkDirty()
	t.mu.Unlock()

	return nil
}

// Replace swaps all root children for children in a single mutation.
func (t *Tree) Replace(children ...*Node) error {
	if err := t.owns(children...); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[*Node]struct{}, len(children))
	for _, c := range children {
		if c == t.root || c.isAncestorOf(t.root) {
			return fmt.Errorf("%w: root cannot be its own child", ErrCyclicAttachment)
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("%w: node %d", ErrDuplicateNode, c.id)
		}
		seen[c] = struct{}{}
	}
	for _, old := range t.root.children {
		old.parent = nil
	}
	t.root.children = t.root.children[:0]
	for _, c := range children {
		if p := c.parent; p != nil {
			if i := p.indexOf(c); i >= 0 {
				p.removeAt(i)
			}
		}
		c.parent = t.root
		t.root.children = append(t.root.children, c)
	}

	t.tracker.MarkDirty()
	return nil
}

// Snapshot deep-copies the tree together with the generation it reflects.
func (t *Tree) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		Root:       t.root.clone(nil),
		Generation: t.tracker.Generation(),
	}
}

// Document returns the first Document node under the snapshot root.
func (s Snapshot) Document() *Node {
	if s.Root == nil {
		return nil
	}
	for _, c := range s.Root.children {
		if c.kind == KindDocument {
			return c
		}
	}
	return nil
}

// Document returns the first live Document node under the root.
func (t *Tree) Document() *Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, c := range t.root.children {
		if c.kind == KindDocument {
			return c
		}
	}
	return nil
}

func (t *Tree) owns(nodes ...*Node) error {
	for _, n := range nodes {
		if n == nil {
			return ErrNilNode
		}
		if n.tree != t {
			return fmt.Errorf("%w: %s#%d", ErrForeignNode, n.kind, n.id)
		}
	}
	return nil
}
