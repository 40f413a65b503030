package member

import "time"

// Profile is what the chat platform reports about a guild member.
type Profile struct {
	RoleIDs  []string
	JoinedAt time.Time
	Boosting bool
}
