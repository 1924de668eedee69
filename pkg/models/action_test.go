package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAction() *Action {
	return &Action{
		Name:  "createThesis",
		Roles: []string{"teacher"},
		Documents: map[string]ActionDocumentSpec{
			"newThesis": {Type: "Thesis", Path: "thesis", EndState: StateSet{"created"}},
		},
	}
}

func TestAction_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(a *Action)
		wantErr error
	}{
		{
			name:   "valid action passes",
			mutate: func(_ *Action) {},
		},
		{
			name:    "name required",
			mutate:  func(a *Action) { a.Name = "" },
			wantErr: ErrActionNameRequired,
		},
		{
			name:    "roles required",
			mutate:  func(a *Action) { a.Roles = nil },
			wantErr: ErrActionRolesRequired,
		},
		{
			name:    "at least one slot required",
			mutate:  func(a *Action) { a.Documents = nil },
			wantErr: ErrNoDocumentSlots,
		},
		{
			name: "slot type required",
			mutate: func(a *Action) {
				a.Documents["newThesis"] = ActionDocumentSpec{Path: "thesis", EndState: StateSet{"created"}}
			},
			wantErr: ErrSlotTypeRequired,
		},
		{
			name: "path and state are mutually exclusive",
			mutate: func(a *Action) {
				a.Documents["newThesis"] = ActionDocumentSpec{
					Type:  "Thesis",
					Path:  "thesis",
					State: StateSet{"created"},
				}
			},
			wantErr: ErrSlotPathStateExclusive,
		},
		{
			name: "neither path nor state is invalid",
			mutate: func(a *Action) {
				a.Documents["newThesis"] = ActionDocumentSpec{Type: "Thesis", EndState: StateSet{"created"}}
			},
			wantErr: ErrSlotPathStateExclusive,
		},
		{
			name: "path slot needs an end state",
			mutate: func(a *Action) {
				a.Documents["newThesis"] = ActionDocumentSpec{Type: "Thesis", Path: "thesis"}
			},
			wantErr: ErrSlotEndStateRequired,
		},
		{
			name: "state slot may omit end state",
			mutate: func(a *Action) {
				a.Documents["newThesis"] = ActionDocumentSpec{Type: "Thesis", State: StateSet{"created"}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			action := validAction()
			tt.mutate(action)

			err := action.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestStateSet_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want StateSet
	}{
		{name: "bare string", raw: `"created"`, want: StateSet{"created"}},
		{name: "array of strings", raw: `["created","assigned"]`, want: StateSet{"created", "assigned"}},
		{name: "empty array", raw: `[]`, want: StateSet{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var set StateSet
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &set))
			assert.Equal(t, tt.want, set)
		})
	}
}

func TestStateSet_UnmarshalJSON_RejectsOtherTypes(t *testing.T) {
	t.Parallel()

	var set StateSet

	assert.Error(t, json.Unmarshal([]byte(`42`), &set))
}

func TestActionDocumentSpec_ResolvedEndState(t *testing.T) {
	t.Parallel()

	spec := ActionDocumentSpec{State: StateSet{"assigned", "created"}}
	assert.Equal(t, "assigned", spec.ResolvedEndState())

	spec.EndState = StateSet{"graded"}
	assert.Equal(t, "graded", spec.ResolvedEndState())

	assert.Empty(t, ActionDocumentSpec{}.ResolvedEndState())
}

func TestActionDocumentSpec_RequiresExisting(t *testing.T) {
	t.Parallel()

	assert.True(t, ActionDocumentSpec{State: StateSet{"created"}}.RequiresExisting())
	assert.False(t, ActionDocumentSpec{Path: "thesis"}.RequiresExisting())
}

func TestAction_UnmarshalFlexibleStates(t *testing.T) {
	t.Parallel()

	raw := `{
		"name": "gradeThesis",
		"roles": ["teacher"],
		"documents": {
			"thesis": {"type": "Thesis", "state": "assigned", "endState": ["graded", "archived"]}
		}
	}`

	var action Action
	require.NoError(t, json.Unmarshal([]byte(raw), &action))

	spec := action.Documents["thesis"]
	assert.Equal(t, StateSet{"assigned"}, spec.State)
	assert.Equal(t, StateSet{"graded", "archived"}, spec.EndState)
	require.NoError(t, action.Validate())
}
