// Package tree materializes case and data-model graphs into navigable
// in-memory trees.
package tree

import (
	"strconv"
	"strings"
)

// Role tokens starting with this sigil are resolved as paths into the case
// tree, e.g. "%professor.data.userName".
const varSigil = "%"

// Metadata keys stamped onto attached vertices, mirroring the cardinality of
// the structural edge they were attached through.
const (
	MetaMin = "__min"
	MetaMax = "__max"
)

// ObjectTree is a read-only view over one materialized document graph: the
// root vertex with children attached under their edge property names, plus a
// flat id lookup map. The tree is frozen for the duration of one execution.
type ObjectTree struct {
	root      map[string]any
	documents map[string]map[string]any
}

func NewObjectTree(root map[string]any, documents map[string]map[string]any) *ObjectTree {
	if documents == nil {
		documents = make(map[string]map[string]any)
	}

	return &ObjectTree{root: root, documents: documents}
}

// Root returns the root vertex of the tree (the Case document, or the Case
// type vertex for the data-model tree).
func (t *ObjectTree) Root() map[string]any {
	return t.root
}

// Documents returns the flat id to vertex map assembled during construction.
// Keys are composite ids ("Document/<key>").
func (t *ObjectTree) Documents() map[string]map[string]any {
	return t.documents
}

// GetValue resolves a dotted path against the root vertex, walking attachment
// properties and document body fields alike. Numeric segments index into
// array-valued attachments. Returns nil when any segment is absent.
func (t *ObjectTree) GetValue(path string) any {
	if t == nil || t.root == nil || path == "" {
		return nil
	}

	var current any = t.root

	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[segment]
			if !ok {
				return nil
			}

			current = value
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return nil
			}

			current = node[index]
		default:
			return nil
		}
	}

	return current
}

// ResolveVar resolves a role token: a leading % marks the remainder as a path
// into the tree, anything else passes through unchanged. A path that does not
// resolve to a string yields "".
func (t *ObjectTree) ResolveVar(token string) string {
	if !strings.HasPrefix(token, varSigil) {
		return token
	}

	value, ok := t.GetValue(strings.TrimPrefix(token, varSigil)).(string)
	if !ok {
		return ""
	}

	return value
}
