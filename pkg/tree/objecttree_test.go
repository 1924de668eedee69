package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleTree() *ObjectTree {
	root := map[string]any{
		"type":  "Case",
		"state": "created",
		"data":  map[string]any{"owner": "jane"},
		"thesis": map[string]any{
			"type": "Thesis",
			"data": map[string]any{"title": "T"},
		},
		"reviews": []any{
			map[string]any{"type": "Review", "data": map[string]any{"score": 4}},
			map[string]any{"type": "Review", "data": map[string]any{"score": 5}},
		},
	}

	return NewObjectTree(root, nil)
}

func TestObjectTree_GetValue(t *testing.T) {
	t.Parallel()

	tree := sampleTree()

	tests := []struct {
		name string
		path string
		want any
	}{
		{name: "top level field", path: "state", want: "created"},
		{name: "nested data field", path: "data.owner", want: "jane"},
		{name: "scalar attachment", path: "thesis.data.title", want: "T"},
		{name: "array index", path: "reviews.1.data.score", want: 5},
		{name: "missing segment", path: "thesis.data.missing", want: nil},
		{name: "index out of range", path: "reviews.7", want: nil},
		{name: "non numeric index", path: "reviews.first", want: nil},
		{name: "descent into scalar", path: "state.inner", want: nil},
		{name: "empty path", path: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tree.GetValue(tt.path))
		})
	}
}

func TestObjectTree_GetValue_NilTree(t *testing.T) {
	t.Parallel()

	var tree *ObjectTree

	assert.Nil(t, tree.GetValue("anything"))
}

func TestObjectTree_ResolveVar(t *testing.T) {
	t.Parallel()

	tree := sampleTree()

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{name: "plain token passes through", token: "teacher", want: "teacher"},
		{name: "variable resolves path", token: "%data.owner", want: "jane"},
		{name: "unresolvable path yields empty", token: "%data.missing", want: ""},
		{name: "non string value yields empty", token: "%reviews.0.data.score", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tree.ResolveVar(tt.token))
		})
	}
}
