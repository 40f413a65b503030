package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequirementSet_SatisfiedBy(t *testing.T) {
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	set := RequirementSet{
		RoleRequirement{RoleID: "r1"},
		LevelRequirement{MinLevel: 5},
		GuildJoinDateRequirement{Before: cutoff},
		AccountCreatedDateRequirement{Before: cutoff},
		BoosterRequirement{},
	}
	eligible := Facts{
		RoleIDs:          []string{"r0", "r1"},
		Level:            5,
		JoinedAt:         cutoff.Add(-time.Hour),
		AccountCreatedAt: cutoff.Add(-24 * time.Hour),
		Boosting:         true,
	}
	assert.True(t, set.SatisfiedBy(eligible))

	tests := []struct {
		name   string
		mutate func(f *Facts)
	}{
		{"missing role", func(f *Facts) { f.RoleIDs = []string{"r0"} }},
		{"low level", func(f *Facts) { f.Level = 4 }},
		{"joined late", func(f *Facts) { f.JoinedAt = cutoff }},
		{"young account", func(f *Facts) { f.AccountCreatedAt = cutoff.Add(time.Hour) }},
		{"unknown join date", func(f *Facts) { f.JoinedAt = time.Time{} }},
		{"not boosting", func(f *Facts) { f.Boosting = false }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := eligible
			tt.mutate(&f)
			assert.False(t, set.SatisfiedBy(f))
		})
	}

	assert.True(t, RequirementSet{}.SatisfiedBy(Facts{}), "no requirements always hold")
}

func TestRequirementSet_JSON(t *testing.T) {
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	set := RequirementSet{
		LevelRequirement{MinLevel: 5},
		RoleRequirement{RoleID: "r1"},
		BoosterRequirement{},
		GuildJoinDateRequirement{Before: cutoff},
	}

	data, err := json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":5,"role":"r1","booster":true,"guild_join_date":"2024-01-01T00:00:00Z"}`, string(data))

	var decoded RequirementSet
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.ElementsMatch(t, set, decoded)
}

func TestRequirementSet_UnmarshalRejectsUnknownKind(t *testing.T) {
	var s RequirementSet
	require.Error(t, json.Unmarshal([]byte(`{"karma":3}`), &s))
}

func TestRequirementSet_UnmarshalBoosterFalse(t *testing.T) {
	var s RequirementSet
	require.NoError(t, json.Unmarshal([]byte(`{"booster":false}`), &s))
	assert.Empty(t, s)
}

func TestRequirementSet_Validate(t *testing.T) {
	assert.NoError(t, RequirementSet{LevelRequirement{MinLevel: 1}}.Validate())
	assert.Error(t, RequirementSet{LevelRequirement{MinLevel: 0}}.Validate())
	assert.Error(t, RequirementSet{RoleRequirement{}}.Validate())
	assert.Error(t, RequirementSet{GuildJoinDateRequirement{}}.Validate())
	assert.Error(t, RequirementSet{
		RoleRequirement{RoleID: "a"},
		RoleRequirement{RoleID: "b"},
	}.Validate())
}

func TestGiveaway_DueAt(t *testing.T) {
	now := time.Now()
	g := &Giveaway{EndAt: now}
	assert.True(t, g.DueAt(now))
	g.Ended = true
	assert.False(t, g.DueAt(now))
}
