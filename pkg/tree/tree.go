// Package tree reconstructs the hierarchical document tree from the
// flat parent-pointer list a sync produces. The tree is always derived,
// never persisted; the flat list is the durable form.
package tree

import (
	"sort"
	"strings"

	"github.com/slatesync/slatesync/pkg/document"
)

// Node is one document in the reconstructed hierarchy.
type Node struct {
	Document document.Document
	Children map[string]*Node
}

// NewNode wraps a document in a childless node.
func NewNode(doc document.Document) *Node {
	return &Node{Document: doc, Children: make(map[string]*Node)}
}

// ID returns the node's document id as a string.
func (n *Node) ID() string {
	return n.Document.ID.String()
}

// Name returns the display name.
func (n *Node) Name() string {
	return n.Document.Name
}

// IsDir reports whether the node can contain children.
func (n *Node) IsDir() bool {
	return n.Document.IsFolder()
}

// Tree is the reconstructed hierarchy, rooted at a synthetic "/" node
// with a synthetic trash container beneath it.
type Tree struct {
	Root *Node
}

// trashKey is the child-map key of the synthetic trash node.
const trashKey = "trash"

// New returns an empty tree with the root and trash nodes seeded.
func New() *Tree {
	root := NewNode(document.Document{Name: "/", Type: document.TypeCollection})
	root.Children[trashKey] = NewNode(document.Document{Name: "trash", Type: document.TypeCollection})
	return &Tree{Root: root}
}

// Build reconstructs the tree from a flat document list. Documents with
// an empty parent go under root; documents whose parent is the trash
// sentinel go under the trash node; the rest are resolved iteratively
// against the growing tree. Iteration is capped by the document count,
// so cyclic parent chains terminate; anything unresolved at the cap is
// placed under root rather than dropped.
func Build(docs []document.Document) *Tree {
	t := New()

	remaining := make(map[string]*Node, len(docs))
	parents := make(map[string]string, len(docs))
	for _, doc := range docs {
		node := NewNode(doc)
		id := node.ID()
		if doc.Parent == "" {
			t.Root.Children[id] = node
			continue
		}
		remaining[id] = node
		parents[id] = doc.Parent
	}

	// Each pass places at least one node or stops; the cap guards
	// against a malformed cyclic parent graph.
	for pass := 0; pass <= len(docs) && len(remaining) > 0; pass++ {
		progress := false
		for id, node := range remaining {
			parent := parents[id]

			if parent == document.TrashParent {
				t.Root.Children[trashKey].Children[id] = node
				delete(remaining, id)
				progress = true
				continue
			}

			if parentNode := findByID(t.Root, parent); parentNode != nil {
				parentNode.Children[id] = node
				delete(remaining, id)
				progress = true
			}
		}
		if !progress {
			break
		}
	}

	// Dangling or cyclic parents: keep the documents visible at root
	// instead of losing them.
	for id, node := range remaining {
		t.Root.Children[id] = node
	}

	return t
}

// FindByID returns the node with the given document id, or nil.
func (t *Tree) FindByID(id string) *Node {
	return findByID(t.Root, id)
}

func findByID(n *Node, id string) *Node {
	if n.ID() == id {
		return n
	}
	for _, child := range n.Children {
		if found := findByID(child, id); found != nil {
			return found
		}
	}
	return nil
}

// FindByPath resolves a slash-separated display-name path. "/" and ""
// name the root.
func (t *Tree) FindByPath(path string) *Node {
	current := t.Root
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		var next *Node
		for _, child := range current.Children {
			if child.Name() == part {
				next = child
				break
			}
		}
		if next == nil {
			return nil
		}
		current = next
	}
	return current
}

// ListDir returns a node's children sorted for display: directories
// first, then files, each group in case-insensitive name order.
func ListDir(n *Node) []*Node {
	entries := make([]*Node, 0, len(n.Children))
	for _, child := range n.Children {
		entries = append(entries, child)
	}

	sort.Slice(entries, func(i, j int) bool {
		di, dj := entries[i].IsDir(), entries[j].IsDir()
		if di != dj {
			return di
		}
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})
	return entries
}

// Count returns the number of nodes in the tree, including the
// synthetic root and trash nodes.
func Count(n *Node) int {
	if n == nil {
		return 0
	}
	count := 1
	for _, child := range n.Children {
		count += Count(child)
	}
	return count
}
