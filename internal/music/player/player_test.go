package player

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/honey001700-lgtm/Durazno/internal/music/stream"
	"github.com/honey001700-lgtm/Durazno/internal/music/track"
)

const waitFor = 2 * time.Second

type fakeResolver struct {
	url string
	err error
}

func (r *fakeResolver) RefreshStreamURL(_ context.Context, _ *track.Track) (string, error) {
	return r.url, r.err
}

// fakeConn blocks Play on the stop channel unless release is closed,
// which simulates a stream draining naturally.
type fakeConn struct {
	mu        sync.Mutex
	channelID string
	connected bool
	release   chan struct{}
	plays     []string
}

func newFakeConn(channelID string) *fakeConn {
	return &fakeConn{channelID: channelID, connected: true}
}

func (c *fakeConn) ChannelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelID
}

func (c *fakeConn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeConn) Move(channelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channelID = channelID
	return nil
}

func (c *fakeConn) Play(source string, _ *stream.Controls, stop <-chan struct{}) error {
	c.mu.Lock()
	c.plays = append(c.plays, source)
	rel := c.release
	c.mu.Unlock()

	if rel != nil {
		select {
		case <-stop:
		case <-rel:
		}
		return nil
	}
	<-stop
	return nil
}

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

func (c *fakeConn) playCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.plays)
}

type fakeDialer struct {
	conn *fakeConn
}

func (d *fakeDialer) Join(_, channelID string) (VoiceConn, error) {
	d.conn.mu.Lock()
	d.conn.channelID = channelID
	d.conn.connected = true
	d.conn.mu.Unlock()
	return d.conn, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []string
	updates []NowPlaying
}

func (n *fakeNotifier) Notice(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, text)
}

func (n *fakeNotifier) NowPlaying(np NowPlaying) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, np)
}

func (n *fakeNotifier) updateList() []NowPlaying {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]NowPlaying, len(n.updates))
	copy(out, n.updates)
	return out
}

func (n *fakeNotifier) lastNotice() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.notices) == 0 {
		return ""
	}
	return n.notices[len(n.notices)-1]
}

func testTrack(title string) *track.Track {
	return &track.Track{
		Title:     title,
		PageURL:   "https://www.youtube.com/watch?v=" + title,
		StreamURL: "stream://" + title,
		Duration:  3 * time.Minute,
		Source:    "youtube",
	}
}

func newTestPlayer(t *testing.T) (*Player, *fakeConn, *fakeNotifier) {
	t.Helper()
	conn := newFakeConn("")
	notify := &fakeNotifier{}
	p := New("guild-1", &fakeResolver{url: "stream://refreshed"}, &fakeDialer{conn: conn}, notify)
	t.Cleanup(func() {
		p.Stop(StopManual)
		p.Close()
	})
	return p, conn, notify
}

func currentTitle(p *Player) string {
	if cur := p.Current(); cur != nil {
		return cur.Title
	}
	return ""
}

func TestStartPlaybackPlaysQueueHead(t *testing.T) {
	p, conn, _ := newTestPlayer(t)

	p.Enqueue(testTrack("a"), false)
	p.Enqueue(testTrack("b"), false)
	require.NoError(t, p.EnsureVoice("vc-1"))
	p.StartPlayback()

	require.Eventually(t, func() bool { return currentTitle(p) == "a" }, waitFor, 10*time.Millisecond)
	require.Equal(t, 1, p.QueueLen())
	assert.Equal(t, "vc-1", p.VoiceChannelID())
	assert.Equal(t, 1, conn.playCount())

	// Starting again while a track is active must not double-start.
	p.StartPlayback()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, "a", currentTitle(p))
	assert.Equal(t, 1, conn.playCount())
}

func TestSkipAdvancesAndRecordsHistory(t *testing.T) {
	p, _, _ := newTestPlayer(t)

	p.Enqueue(testTrack("a"), false)
	p.Enqueue(testTrack("b"), false)
	require.NoError(t, p.EnsureVoice("vc-1"))
	p.StartPlayback()
	require.Eventually(t, func() bool { return currentTitle(p) == "a" }, waitFor, 10*time.Millisecond)

	require.NoError(t, p.Skip())
	require.Eventually(t, func() bool { return currentTitle(p) == "b" }, waitFor, 10*time.Millisecond)

	hist := p.History()
	require.Len(t, hist, 1)
	assert.Equal(t, "a", hist[0].Title)
}

func TestSkipWhenIdle(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	assert.ErrorIs(t, p.Skip(), ErrNothingPlaying)
}

func TestEnsureVoiceRequiresChannel(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	assert.ErrorIs(t, p.EnsureVoice(""), ErrNoVoiceChannel)
}

func TestEnsureVoiceMovesExistingConnection(t *testing.T) {
	p, conn, _ := newTestPlayer(t)

	require.NoError(t, p.EnsureVoice("vc-1"))
	require.NoError(t, p.EnsureVoice("vc-2"))
	assert.Equal(t, "vc-2", conn.ChannelID())
	assert.Equal(t, "vc-2", p.VoiceChannelID())
}

func TestHistoryBounded(t *testing.T) {
	p, _, _ := newTestPlayer(t)

	for i := 0; i < historyLimit+5; i++ {
		p.mu.Lock()
		p.current = testTrack(fmt.Sprintf("t%02d", i))
		p.dequeueNextLocked()
		p.mu.Unlock()
	}

	hist := p.History()
	require.Len(t, hist, historyLimit)
	assert.Equal(t, "t05", hist[0].Title)
	assert.Equal(t, fmt.Sprintf("t%02d", historyLimit+4), hist[len(hist)-1].Title)
}

func TestRepeatOneReplaysCurrent(t *testing.T) {
	p, conn, _ := newTestPlayer(t)

	p.SetRepeatMode(RepeatOne)
	p.Enqueue(testTrack("a"), false)
	p.Enqueue(testTrack("b"), false)
	require.NoError(t, p.EnsureVoice("vc-1"))
	p.StartPlayback()
	require.Eventually(t, func() bool { return currentTitle(p) == "a" }, waitFor, 10*time.Millisecond)

	require.NoError(t, p.Skip())
	require.Eventually(t, func() bool { return conn.playCount() == 2 }, waitFor, 10*time.Millisecond)

	assert.Equal(t, "a", currentTitle(p))
	queue := p.Queue()
	require.Len(t, queue, 1)
	assert.Equal(t, "b", queue[0].Title)
}

func TestRepeatAllRequeuesAtBack(t *testing.T) {
	p, _, _ := newTestPlayer(t)

	p.SetRepeatMode(RepeatAll)
	p.Enqueue(testTrack("a"), false)
	p.Enqueue(testTrack("b"), false)
	require.NoError(t, p.EnsureVoice("vc-1"))
	p.StartPlayback()
	require.Eventually(t, func() bool { return currentTitle(p) == "a" }, waitFor, 10*time.Millisecond)

	require.NoError(t, p.Skip())
	require.Eventually(t, func() bool { return currentTitle(p) == "b" }, waitFor, 10*time.Millisecond)

	queue := p.Queue()
	require.Len(t, queue, 1)
	assert.Equal(t, "a", queue[0].Title)
}

func TestPlayPreviousRestoresLastPlayed(t *testing.T) {
	p, _, _ := newTestPlayer(t)

	p.Enqueue(testTrack("a"), false)
	p.Enqueue(testTrack("b"), false)
	require.NoError(t, p.EnsureVoice("vc-1"))
	p.StartPlayback()
	require.Eventually(t, func() bool { return currentTitle(p) == "a" }, waitFor, 10*time.Millisecond)
	require.NoError(t, p.Skip())
	require.Eventually(t, func() bool { return currentTitle(p) == "b" }, waitFor, 10*time.Millisecond)

	require.NoError(t, p.PlayPrevious())
	require.Eventually(t, func() bool { return currentTitle(p) == "a" }, waitFor, 10*time.Millisecond)

	// The displaced track lines up right after the restored one.
	queue := p.Queue()
	require.Len(t, queue, 1)
	assert.Equal(t, "b", queue[0].Title)
}

func TestPlayPreviousWithoutHistory(t *testing.T) {
	p, _, _ := newTestPlayer(t)
	assert.ErrorIs(t, p.PlayPrevious(), ErrNoHistory)
}

func TestVolumeClamped(t *testing.T) {
	p, _, _ := newTestPlayer(t)

	assert.Equal(t, 2.0, p.SetVolume(3.5))
	assert.Equal(t, 0.0, p.SetVolume(-1.0))
	assert.Equal(t, 0.5, p.SetVolume(0.5))
	assert.Equal(t, 0.7, p.AdjustVolume(0.2))
	assert.Equal(t, 0.0, p.AdjustVolume(-5.0))
	assert.Equal(t, 2.0, p.AdjustVolume(100.0))
}

func TestPauseResume(t *testing.T) {
	p, _, _ := newTestPlayer(t)

	assert.ErrorIs(t, p.Pause(), ErrNothingPlaying)

	p.Enqueue(testTrack("a"), false)
	require.NoError(t, p.EnsureVoice("vc-1"))
	p.StartPlayback()
	require.Eventually(t, func() bool { return currentTitle(p) == "a" }, waitFor, 10*time.Millisecond)

	require.NoError(t, p.Pause())
	assert.True(t, p.Paused())
	require.NoError(t, p.Resume())
	assert.False(t, p.Paused())
}

func TestShufflePreservesTracks(t *testing.T) {
	p, _, _ := newTestPlayer(t)

	titles := []string{"a", "b", "c", "d", "e", "f"}
	for _, title := range titles {
		p.Enqueue(testTrack(title), false)
	}

	require.Equal(t, len(titles), p.Shuffle())

	got := make([]string, 0, len(titles))
	for _, tr := range p.Queue() {
		got = append(got, tr.Title)
	}
	sort.Strings(got)
	assert.Equal(t, titles, got)
}

func TestStopIsIdempotent(t *testing.T) {
	p, conn, _ := newTestPlayer(t)

	p.Enqueue(testTrack("a"), false)
	p.Enqueue(testTrack("b"), false)
	require.NoError(t, p.EnsureVoice("vc-1"))
	p.StartPlayback()
	require.Eventually(t, func() bool { return currentTitle(p) == "a" }, waitFor, 10*time.Millisecond)

	p.Stop(StopManual)
	assert.Nil(t, p.Current())
	assert.Equal(t, 0, p.QueueLen())
	assert.Equal(t, "", p.VoiceChannelID())
	assert.False(t, conn.Connected())
	assert.False(t, p.monitorRunning())

	p.Stop(StopManual)
	assert.Nil(t, p.Current())
	assert.Equal(t, 0, p.QueueLen())
	assert.Equal(t, "", p.VoiceChannelID())
}

func TestQueueEndDisconnects(t *testing.T) {
	p, conn, notify := newTestPlayer(t)
	conn.release = make(chan struct{})
	close(conn.release) // streams drain immediately

	p.Enqueue(testTrack("a"), false)
	require.NoError(t, p.EnsureVoice("vc-1"))
	p.StartPlayback()

	require.Eventually(t, func() bool { return !conn.Connected() }, waitFor, 10*time.Millisecond)
	assert.Nil(t, p.Current())
	assert.False(t, p.monitorRunning())
	assert.Contains(t, notify.lastNotice(), "Queue finished")
}

func TestInactivityTimeoutStopsPlayer(t *testing.T) {
	p, conn, notify := newTestPlayer(t)
	p.idleTimeout = 60 * time.Millisecond
	p.checkInterval = 10 * time.Millisecond

	require.NoError(t, p.EnsureVoice("vc-1"))

	require.Eventually(t, func() bool { return !conn.Connected() }, waitFor, 10*time.Millisecond)
	assert.Equal(t, "", p.VoiceChannelID())
	assert.False(t, p.monitorRunning())

	notify.mu.Lock()
	defer notify.mu.Unlock()
	require.NotEmpty(t, notify.notices)
	assert.Contains(t, notify.notices[0], "packing up")
}

func TestActivityDefersInactivityTimeout(t *testing.T) {
	p, conn, _ := newTestPlayer(t)
	p.idleTimeout = 120 * time.Millisecond
	p.checkInterval = 20 * time.Millisecond

	require.NoError(t, p.EnsureVoice("vc-1"))

	for i := 0; i < 5; i++ {
		time.Sleep(50 * time.Millisecond)
		p.Touch()
	}
	assert.True(t, conn.Connected())
	assert.True(t, p.monitorRunning())
}

func TestFreshStartReplacesStatusCard(t *testing.T) {
	p, _, notify := newTestPlayer(t)

	p.Enqueue(testTrack("a"), false)
	p.Enqueue(testTrack("b"), false)
	require.NoError(t, p.EnsureVoice("vc-1"))
	p.StartPlayback()
	require.Eventually(t, func() bool { return len(notify.updateList()) >= 1 }, waitFor, 10*time.Millisecond)
	assert.True(t, notify.updateList()[0].ForceNew)

	// Track-to-track advancement edits the card in place.
	require.NoError(t, p.Skip())
	require.Eventually(t, func() bool { return len(notify.updateList()) >= 2 }, waitFor, 10*time.Millisecond)
	assert.False(t, notify.updateList()[1].ForceNew)
}

func TestRefreshNowPlayingForceNew(t *testing.T) {
	p, _, notify := newTestPlayer(t)

	// Nothing playing: no card to refresh.
	p.RefreshNowPlaying(true)
	assert.Empty(t, notify.updateList())

	p.Enqueue(testTrack("a"), false)
	require.NoError(t, p.EnsureVoice("vc-1"))
	p.StartPlayback()
	require.Eventually(t, func() bool { return currentTitle(p) == "a" }, waitFor, 10*time.Millisecond)

	before := len(notify.updateList())
	p.RefreshNowPlaying(true)
	updates := notify.updateList()
	require.Len(t, updates, before+1)
	assert.True(t, updates[len(updates)-1].ForceNew)
}

func TestEnqueueManyResetsActivity(t *testing.T) {
	p, _, _ := newTestPlayer(t)

	p.mu.Lock()
	p.lastActivity = time.Now().Add(-time.Hour)
	p.mu.Unlock()

	p.EnqueueMany([]*track.Track{testTrack("a"), testTrack("b")})

	p.mu.Lock()
	idle := time.Since(p.lastActivity)
	p.mu.Unlock()
	assert.Less(t, idle, time.Minute)
}

func TestConnectionLossRequeuesTrack(t *testing.T) {
	p, conn, _ := newTestPlayer(t)

	p.Enqueue(testTrack("a"), false)
	require.NoError(t, p.EnsureVoice("vc-1"))
	require.NoError(t, conn.Disconnect())

	p.StartPlayback()

	assert.Nil(t, p.Current())
	assert.False(t, p.IsPlaying())
	queue := p.Queue()
	require.Len(t, queue, 1)
	assert.Equal(t, "a", queue[0].Title)

	// Once the transport recovers the same entry starts from the queue head.
	conn.mu.Lock()
	conn.connected = true
	conn.mu.Unlock()
	p.StartPlayback()
	require.Eventually(t, func() bool { return currentTitle(p) == "a" }, waitFor, 10*time.Millisecond)
}

func TestUnplayableTrackSkipped(t *testing.T) {
	conn := newFakeConn("")
	notify := &fakeNotifier{}
	p := New("guild-1", &fakeResolver{err: context.DeadlineExceeded}, &fakeDialer{conn: conn}, notify)
	t.Cleanup(func() {
		p.Stop(StopManual)
		p.Close()
	})

	broken := testTrack("broken")
	broken.StreamURL = ""
	p.Enqueue(broken, false)
	p.Enqueue(testTrack("ok"), false)
	require.NoError(t, p.EnsureVoice("vc-1"))
	p.StartPlayback()

	require.Eventually(t, func() bool { return currentTitle(p) == "ok" }, waitFor, 10*time.Millisecond)
	assert.Contains(t, notify.lastNotice(), "broken")
}
