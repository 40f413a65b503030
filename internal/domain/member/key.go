package member

import "fmt"

// Key identifies a member inside one guild. Bans and reminders are owned
// per (member, guild) pair and cached under this key.
type Key struct {
	MemberID string `json:"member_id"`
	GuildID  string `json:"guild_id"`
}

func NewKey(memberID, guildID string) Key {
	return Key{MemberID: memberID, GuildID: guildID}
}

func (k Key) String() string {
	return fmt.Sprintf("%s+%s", k.MemberID, k.GuildID)
}

func (k Key) Valid() bool {
	return k.MemberID != "" && k.GuildID != ""
}
