package discord

import (
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/honey001700-lgtm/Durazno/internal/command"
	cmdmusic "github.com/honey001700-lgtm/Durazno/internal/command/music"
	"github.com/honey001700-lgtm/Durazno/internal/music/player"
)

// Notifier posts player-initiated messages into the guild's most recently
// used command channel, and maintains the persistent now-playing card by
// editing it in place until a new one is forced.
type Notifier struct {
	dg      *discordgo.Session
	guildID string

	mu           sync.Mutex
	channelID    string
	nowPlayingID string
}

func NewNotifier(dg *discordgo.Session, guildID string) *Notifier {
	return &Notifier{dg: dg, guildID: guildID}
}

// SetChannel repoints notices at the channel the guild last commanded from.
func (n *Notifier) SetChannel(channelID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.channelID = channelID
}

func (n *Notifier) Notice(text string) {
	n.mu.Lock()
	channelID := n.channelID
	n.mu.Unlock()
	if channelID == "" {
		return
	}

	r := &command.ChannelResponder{Session: n.dg, ChannelID: channelID}
	if err := r.Reply(text, false); err != nil {
		log.Warn().Err(err).Str("guild_id", n.guildID).Msg("Notice delivery failed")
	}
}

func (n *Notifier) NowPlaying(np player.NowPlaying) {
	n.mu.Lock()
	channelID := n.channelID
	messageID := n.nowPlayingID
	n.mu.Unlock()
	if channelID == "" || np.Track == nil {
		return
	}

	embed := cmdmusic.NowPlayingEmbed(np)

	if messageID != "" && !np.ForceNew {
		if _, err := n.dg.ChannelMessageEditEmbed(channelID, messageID, embed); err == nil {
			return
		}
		// Edit failed (message deleted or too old); fall through to a
		// fresh message.
	}

	msg, err := n.dg.ChannelMessageSendEmbed(channelID, embed)
	if err != nil {
		log.Warn().Err(err).Str("guild_id", n.guildID).Msg("Now-playing message failed")
		return
	}

	n.mu.Lock()
	n.nowPlayingID = msg.ID
	n.mu.Unlock()
}
