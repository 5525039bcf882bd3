package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/honey001700-lgtm/Durazno/internal/music/player"
	"github.com/honey001700-lgtm/Durazno/internal/music/stream"
)

// voiceDialer opens gateway voice connections for the player.
type voiceDialer struct {
	dg *discordgo.Session
}

func (d *voiceDialer) Join(guildID, channelID string) (player.VoiceConn, error) {
	vc, err := d.dg.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, fmt.Errorf("voice join: %w", err)
	}
	return &voiceConn{vc: vc}, nil
}

// voiceConn adapts discordgo's voice connection to the player's transport
// contract.
type voiceConn struct {
	vc *discordgo.VoiceConnection
}

func (c *voiceConn) ChannelID() string {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.ChannelID
}

func (c *voiceConn) Connected() bool {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.Ready
}

func (c *voiceConn) Move(channelID string) error {
	return c.vc.ChangeChannel(channelID, false, true)
}

// Play decodes the source through ffmpeg and streams opus frames until the
// source drains or stop closes.
func (c *voiceConn) Play(source string, ctrl *stream.Controls, stop <-chan struct{}) error {
	if ctrl == nil {
		ctrl = stream.NewControls(1.0)
	}

	pcm, cleanup, err := stream.Open(source)
	if err != nil {
		return err
	}
	defer cleanup()

	_ = c.vc.Speaking(true)
	defer func() { _ = c.vc.Speaking(false) }()

	return stream.StreamToDiscord(pcm, ctrl, stop, c.vc)
}

func (c *voiceConn) Disconnect() error {
	return c.vc.Disconnect()
}
