package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// RequirementKind names one eligibility criterion of a giveaway.
type RequirementKind string

const (
	KindRole               RequirementKind = "role"
	KindLevel              RequirementKind = "level"
	KindGuildJoinDate      RequirementKind = "guild_join_date"
	KindAccountCreatedDate RequirementKind = "account_created_date"
	KindBooster            RequirementKind = "booster"
)

// Facts are the member attributes requirements are evaluated against.
// Only the facts needed by a giveaway's requirements are populated.
type Facts struct {
	RoleIDs          []string
	Level            int
	JoinedAt         time.Time
	AccountCreatedAt time.Time
	Boosting         bool
}

func (f Facts) HasRole(roleID string) bool {
	for _, id := range f.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// Requirement is a closed set: only the types in this file implement it.
type Requirement interface {
	Kind() RequirementKind
	Satisfied(f Facts) bool
	Describe() string
	validate() error
}

// RoleRequirement requires the member to hold a role.
type RoleRequirement struct {
	RoleID string
}

func (RoleRequirement) Kind() RequirementKind { return KindRole }
func (r RoleRequirement) Satisfied(f Facts) bool { return f.HasRole(r.RoleID) }
func (r RoleRequirement) Describe() string { return fmt.Sprintf("Must have the role <@&%s>", r.RoleID) }
func (r RoleRequirement) validate() error {
	if r.RoleID == "" {
		return fmt.Errorf("role requirement needs a role id")
	}
	return nil
}

// LevelRequirement requires a minimum progression level.
type LevelRequirement struct {
	MinLevel int
}

func (LevelRequirement) Kind() RequirementKind { return KindLevel }
func (r LevelRequirement) Satisfied(f Facts) bool { return f.Level >= r.MinLevel }
func (r LevelRequirement) Describe() string { return fmt.Sprintf("Must be at least level %d", r.MinLevel) }
func (r LevelRequirement) validate() error {
	if r.MinLevel < 1 {
		return fmt.Errorf("level requirement must be at least 1")
	}
	return nil
}

// GuildJoinDateRequirement requires the member to have joined the guild
// before a date.
type GuildJoinDateRequirement struct {
	Before time.Time
}

func (GuildJoinDateRequirement) Kind() RequirementKind { return KindGuildJoinDate }
func (r GuildJoinDateRequirement) Satisfied(f Facts) bool {
	return !f.JoinedAt.IsZero() && f.JoinedAt.Before(r.Before)
}
func (r GuildJoinDateRequirement) Describe() string {
	return fmt.Sprintf("Must have joined the server before <t:%d:D>", r.Before.Unix())
}
func (r GuildJoinDateRequirement) validate() error {
	if r.Before.IsZero() {
		return fmt.Errorf("guild join date requirement needs a date")
	}
	return nil
}

// AccountCreatedDateRequirement requires the account to have been created
// before a date.
type AccountCreatedDateRequirement struct {
	Before time.Time
}

func (AccountCreatedDateRequirement) Kind() RequirementKind { return KindAccountCreatedDate }
func (r AccountCreatedDateRequirement) Satisfied(f Facts) bool {
	return !f.AccountCreatedAt.IsZero() && f.AccountCreatedAt.Before(r.Before)
}
func (r AccountCreatedDateRequirement) Describe() string {
	return fmt.Sprintf("Account must have been created before <t:%d:D>", r.Before.Unix())
}
func (r AccountCreatedDateRequirement) validate() error {
	if r.Before.IsZero() {
		return fmt.Errorf("account creation date requirement needs a date")
	}
	return nil
}

// BoosterRequirement requires the member to be boosting the guild.
type BoosterRequirement struct{}

func (BoosterRequirement) Kind() RequirementKind { return KindBooster }
func (BoosterRequirement) Satisfied(f Facts) bool { return f.Boosting }
func (BoosterRequirement) Describe() string { return "Must be boosting the server" }
func (BoosterRequirement) validate() error { return nil }

// RequirementSet holds at most one requirement per kind. All of them must
// hold for a member to be eligible; an empty set always holds.
type RequirementSet []Requirement

func (s RequirementSet) Validate() error {
	seen := make(map[RequirementKind]bool, len(s))
	for _, r := range s {
		if seen[r.Kind()] {
			return fmt.Errorf("duplicate %s requirement", r.Kind())
		}
		seen[r.Kind()] = true
		if err := r.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s RequirementSet) SatisfiedBy(f Facts) bool {
	for _, r := range s {
		if !r.Satisfied(f) {
			return false
		}
	}
	return true
}

func (s RequirementSet) Has(kind RequirementKind) bool {
	for _, r := range s {
		if r.Kind() == kind {
			return true
		}
	}
	return false
}

// MarshalJSON encodes the set as an object keyed by kind, which is also
// the shape stored in the requirements column.
func (s RequirementSet) MarshalJSON() ([]byte, error) {
	out := make(map[RequirementKind]any, len(s))
	for _, r := range s {
		switch r := r.(type) {
		case RoleRequirement:
			out[KindRole] = r.RoleID
		case LevelRequirement:
			out[KindLevel] = r.MinLevel
		case GuildJoinDateRequirement:
			out[KindGuildJoinDate] = r.Before.UTC()
		case AccountCreatedDateRequirement:
			out[KindAccountCreatedDate] = r.Before.UTC()
		case BoosterRequirement:
			out[KindBooster] = true
		default:
			return nil, fmt.Errorf("unknown requirement %T", r)
		}
	}
	return json.Marshal(out)
}

func (s *RequirementSet) UnmarshalJSON(data []byte) error {
	var raw map[RequirementKind]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode requirements: %w", err)
	}

	kinds := make([]string, 0, len(raw))
	for k := range raw {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	set := make(RequirementSet, 0, len(raw))
	for _, k := range kinds {
		value := raw[RequirementKind(k)]
		switch kind := RequirementKind(k); kind {
		case KindRole:
			var id string
			if err := json.Unmarshal(value, &id); err != nil {
				return fmt.Errorf("decode %s requirement: %w", kind, err)
			}
			set = append(set, RoleRequirement{RoleID: id})
		case KindLevel:
			var lvl int
			if err := json.Unmarshal(value, &lvl); err != nil {
				return fmt.Errorf("decode %s requirement: %w", kind, err)
			}
			set = append(set, LevelRequirement{MinLevel: lvl})
		case KindGuildJoinDate:
			var t time.Time
			if err := json.Unmarshal(value, &t); err != nil {
				return fmt.Errorf("decode %s requirement: %w", kind, err)
			}
			set = append(set, GuildJoinDateRequirement{Before: t})
		case KindAccountCreatedDate:
			var t time.Time
			if err := json.Unmarshal(value, &t); err != nil {
				return fmt.Errorf("decode %s requirement: %w", kind, err)
			}
			set = append(set, AccountCreatedDateRequirement{Before: t})
		case KindBooster:
			var on bool
			if err := json.Unmarshal(value, &on); err != nil {
				return fmt.Errorf("decode %s requirement: %w", kind, err)
			}
			if on {
				set = append(set, BoosterRequirement{})
			}
		default:
			return fmt.Errorf("unknown requirement kind %q", kind)
		}
	}
	*s = set
	return nil
}
