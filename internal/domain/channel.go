package domain

// ChannelKind distinguishes public channels from private groups.
type ChannelKind int

const (
	ChannelPublic ChannelKind = iota
	ChannelPrivate
)

// Channel identifies a chat-service channel.
type Channel struct {
	ID          string
	Name        string
	MemberCount int
	Archived    bool
}

// KindOf derives the channel kind from its identifier. Public channel IDs
// start with "C"; everything else (groups "G", conversations) is private.
func KindOf(channelID string) ChannelKind {
	if len(channelID) > 0 && channelID[0] == 'C' {
		return ChannelPublic
	}
	return ChannelPrivate
}
