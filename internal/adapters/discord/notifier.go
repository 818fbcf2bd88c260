package discord

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"
)

// ChannelNotifier posts announcements to guild channels. Failures are logged
// and dropped; announcements never fail the operation that produced them.
type ChannelNotifier struct {
	s *discordgo.Session
}

func NewChannelNotifier(s *discordgo.Session) *ChannelNotifier {
	return &ChannelNotifier{s: s}
}

func (n *ChannelNotifier) Post(_ context.Context, channelID, text string) {
	if channelID == "" || text == "" {
		return
	}
	if _, err := n.s.ChannelMessageSend(channelID, text); err != nil {
		log.Printf("notify: channel=%s send failed: %v", channelID, err)
	}
}
