package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadbot/internal/model"
)

func TestMergePreferences_ScalarsSurviveSilentDeltas(t *testing.T) {
	deltas := []model.PreferenceState{
		{Location: model.StringPtr("Nashville")},
		{MaxPrice: model.Float64Ptr(500000)},
		{Location: model.StringPtr("Austin"), MinBedrooms: model.IntPtr(3)},
		{},
		{PropertyType: model.StringPtr(model.PropertyTypeCondo)},
		{MaxPrice: model.Float64Ptr(400000)},
	}

	state := model.PreferenceState{}
	for _, d := range deltas {
		state = MergePreferences(state, d)
	}

	require.NotNil(t, state.Location)
	assert.Equal(t, "Austin", *state.Location)
	require.NotNil(t, state.MaxPrice)
	assert.Equal(t, 400000.0, *state.MaxPrice)
	require.NotNil(t, state.MinBedrooms)
	assert.Equal(t, 3, *state.MinBedrooms)
	require.NotNil(t, state.PropertyType)
	assert.Equal(t, model.PropertyTypeCondo, *state.PropertyType)
	assert.Nil(t, state.MinBathrooms)
}

func TestMergePreferences_FeatureUnion(t *testing.T) {
	state := model.PreferenceState{MustHaveFeatures: []string{"pool", "garage"}}

	state = MergePreferences(state, model.PreferenceState{MustHaveFeatures: []string{"garage", "backyard", "pool"}})
	assert.Equal(t, []string{"pool", "garage", "backyard"}, state.MustHaveFeatures)

	state = MergePreferences(state, model.PreferenceState{MustHaveFeatures: []string{"Pool"}})
	assert.Equal(t, []string{"pool", "garage", "backyard", "Pool"}, state.MustHaveFeatures, "dedup is case-sensitive")

	state = MergePreferences(state, model.PreferenceState{})
	assert.Len(t, state.MustHaveFeatures, 4)

	state = MergePreferences(state, model.PreferenceState{NiceToHaveFeatures: []string{"fireplace", "fireplace"}})
	assert.Equal(t, []string{"fireplace"}, state.NiceToHaveFeatures)
}

func TestMergePreferences_DoesNotAliasInputs(t *testing.T) {
	current := model.PreferenceState{Location: model.StringPtr("Austin"), MustHaveFeatures: []string{"pool"}}
	delta := model.PreferenceState{MustHaveFeatures: []string{"garage"}}

	merged := MergePreferences(current, delta)
	*merged.Location = "Denver"
	merged.MustHaveFeatures[0] = "sauna"

	assert.Equal(t, "Austin", *current.Location)
	assert.Equal(t, []string{"pool"}, current.MustHaveFeatures)
}

func TestCanSearch(t *testing.T) {
	tests := []struct {
		name  string
		prefs model.PreferenceState
		want  bool
	}{
		{name: "location and budget", prefs: model.PreferenceState{Location: model.StringPtr("Austin"), MaxPrice: model.Float64Ptr(400000)}, want: true},
		{name: "location only", prefs: model.PreferenceState{Location: model.StringPtr("Austin")}, want: false},
		{name: "budget only", prefs: model.PreferenceState{MaxPrice: model.Float64Ptr(400000)}, want: false},
		{name: "empty", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.prefs.CanSearch())
		})
	}
}
