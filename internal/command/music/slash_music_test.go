package music

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/honey001700-lgtm/Durazno/internal/music/player"
	"github.com/honey001700-lgtm/Durazno/internal/music/stream"
	"github.com/honey001700-lgtm/Durazno/internal/music/track"
)

type stubResolver struct{}

func (stubResolver) RefreshStreamURL(context.Context, *track.Track) (string, error) {
	return "", context.Canceled
}

type stubConn struct{ channelID string }

func (c *stubConn) ChannelID() string           { return c.channelID }
func (c *stubConn) Connected() bool             { return true }
func (c *stubConn) Move(channelID string) error { c.channelID = channelID; return nil }
func (c *stubConn) Disconnect() error           { return nil }
func (c *stubConn) Play(_ string, _ *stream.Controls, stop <-chan struct{}) error {
	<-stop
	return nil
}

type stubDialer struct{ conn *stubConn }

func (d *stubDialer) Join(_, channelID string) (player.VoiceConn, error) {
	d.conn.channelID = channelID
	return d.conn, nil
}

type stubNotifier struct{}

func (stubNotifier) Notice(string)                {}
func (stubNotifier) NowPlaying(player.NowPlaying) {}

type stubManager struct {
	player   *player.Player
	channels map[string]string // userID -> voice channel
}

func (m *stubManager) Player(string) *player.Player { return m.player }

func (m *stubManager) UserVoiceChannel(_, userID string) string { return m.channels[userID] }

func TestControlSubcommandsAreGated(t *testing.T) {
	for _, name := range []string{"skip", "previous", "pause", "resume", "shuffle", "repeat", "volume", "stop"} {
		assert.True(t, controlSubcommand(name), name)
	}
	for _, name := range []string{"play", "search", "queue", "nowplaying"} {
		assert.False(t, controlSubcommand(name), name)
	}
}

func TestSharesVoiceChannel(t *testing.T) {
	p := player.New("guild-1", stubResolver{}, &stubDialer{conn: &stubConn{}}, stubNotifier{})
	t.Cleanup(func() {
		p.Stop(player.StopManual)
		p.Close()
	})

	m := &stubManager{player: p, channels: map[string]string{
		"listener": "vc-1",
		"outsider": "vc-2",
	}}

	// Not connected anywhere yet: the handlers report their own idle errors.
	assert.True(t, sharesVoiceChannel(m, "guild-1", "outsider", p))

	require.NoError(t, p.EnsureVoice("vc-1"))

	assert.True(t, sharesVoiceChannel(m, "guild-1", "listener", p))
	assert.False(t, sharesVoiceChannel(m, "guild-1", "outsider", p))
	assert.False(t, sharesVoiceChannel(m, "guild-1", "absent", p))
}
