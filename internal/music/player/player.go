// Package player implements the per-guild playback controller: a queue and
// history, repeat modes, volume, an inactivity monitor, and the lifecycle
// of the guild's single voice connection.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/honey001700-lgtm/Durazno/internal/music/stream"
	"github.com/honey001700-lgtm/Durazno/internal/music/track"
)

type RepeatMode string

const (
	RepeatNone RepeatMode = "none"
	RepeatOne  RepeatMode = "one"
	RepeatAll  RepeatMode = "all"
)

// StopCause distinguishes the teardown paths for logging and notices.
type StopCause int

const (
	StopManual StopCause = iota
	StopInactivity
	StopQueueEnd
)

var (
	ErrNothingPlaying = errors.New("no track is currently playing")
	ErrNoHistory      = errors.New("no previously played tracks")
	ErrNoVoiceChannel = errors.New("requester is not in a voice channel")
)

const (
	DefaultVolume = 0.6

	historyLimit            = 25
	inactivityTimeout       = 10 * time.Minute
	inactivityCheckInterval = 30 * time.Second
	cueWaitTimeout          = 10 * time.Second
	resolveTimeout          = 20 * time.Second
)

// Resolver re-resolves expired stream URLs. The full query resolver
// satisfies this; the player itself only ever refreshes.
type Resolver interface {
	RefreshStreamURL(ctx context.Context, t *track.Track) (string, error)
}

// VoiceDialer opens the guild's voice connection.
type VoiceDialer interface {
	Join(guildID, channelID string) (VoiceConn, error)
}

// VoiceConn is the guild-exclusive audio transport. Play blocks until the
// source drains, stop closes, or the transport fails.
type VoiceConn interface {
	ChannelID() string
	Connected() bool
	Move(channelID string) error
	Play(source string, ctrl *stream.Controls, stop <-chan struct{}) error
	Disconnect() error
}

// NowPlaying is the status snapshot handed to the notifier for the
// persistent now-playing message.
type NowPlaying struct {
	Track    *track.Track
	Volume   float64
	Repeat   RepeatMode
	QueueLen int
	ForceNew bool
}

// Notifier delivers player-initiated messages to the guild's text channel.
type Notifier interface {
	Notice(text string)
	NowPlaying(np NowPlaying)
}

// trackEnd is posted by the playback goroutine when a stream finishes.
// Events from a generation older than the player's are stale (the stream
// was torn down) and get dropped.
type trackEnd struct {
	gen int
	err error
}

// Player is the playback controller for one guild. All state behind mu;
// stream completions arrive as events on a channel consumed by a single
// loop goroutine, never mutated from the transport callback context.
type Player struct {
	guildID string

	resolver Resolver
	dialer   VoiceDialer
	notify   Notifier

	greetingSound string
	farewellSound string

	mu            sync.Mutex
	queue         []*track.Track
	history       []*track.Track
	current       *track.Track
	playing       bool
	forceNextCard bool
	repeat        RepeatMode
	volume        float64
	lastActivity  time.Time

	vc         VoiceConn
	ctrl       *stream.Controls
	stopStream chan struct{}
	stopOnce   *sync.Once
	gen        int

	monitorCancel context.CancelFunc
	monitorDone   chan struct{}

	// shortened by tests
	idleTimeout   time.Duration
	checkInterval time.Duration
	cueWait       time.Duration

	events    chan trackEnd
	closed    chan struct{}
	closeOnce sync.Once
}

func New(guildID string, resolver Resolver, dialer VoiceDialer, notify Notifier) *Player {
	p := &Player{
		guildID:       guildID,
		resolver:      resolver,
		dialer:        dialer,
		notify:        notify,
		repeat:        RepeatNone,
		volume:        DefaultVolume,
		lastActivity:  time.Now(),
		idleTimeout:   inactivityTimeout,
		checkInterval: inactivityCheckInterval,
		cueWait:       cueWaitTimeout,
		events:        make(chan trackEnd, 4),
		closed:        make(chan struct{}),
	}
	go p.loop()
	return p
}

// SetCues configures the optional connect/disconnect audio clips.
func (p *Player) SetCues(greeting, farewell string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.greetingSound = greeting
	p.farewellSound = farewell
}

// Close stops the event loop. Used on shutdown; a closed player must not be
// reused.
func (p *Player) Close() {
	p.closeOnce.Do(func() { close(p.closed) })
}

// loop serializes queue advancement: every stream completion funnels
// through here regardless of which goroutine ran the stream.
func (p *Player) loop() {
	for {
		select {
		case ev := <-p.events:
			p.onTrackEnd(ev)
		case <-p.closed:
			return
		}
	}
}

// Touch records control activity for the inactivity monitor.
func (p *Player) Touch() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastActivity = time.Now()
}

// EnsureVoice connects to the requester's voice channel, moving if already
// connected elsewhere. Idempotent.
func (p *Player) EnsureVoice(channelID string) error {
	if channelID == "" {
		return ErrNoVoiceChannel
	}

	p.mu.Lock()
	vc := p.vc
	p.lastActivity = time.Now()
	p.mu.Unlock()

	if vc != nil && vc.Connected() {
		if vc.ChannelID() != channelID {
			if err := vc.Move(channelID); err != nil {
				return fmt.Errorf("move to voice channel: %w", err)
			}
		}
		return nil
	}

	conn, err := p.dialer.Join(p.guildID, channelID)
	if err != nil {
		return fmt.Errorf("join voice channel: %w", err)
	}

	p.mu.Lock()
	if p.vc != nil && p.vc.Connected() {
		// Lost a connect race across the join await; keep the winner.
		existing := p.vc
		p.mu.Unlock()
		_ = conn.Disconnect()
		if existing.ChannelID() != channelID {
			_ = existing.Move(channelID)
		}
		return nil
	}
	p.vc = conn
	p.lastActivity = time.Now()
	greeting := p.greetingSound
	p.mu.Unlock()

	p.startMonitor()
	p.playCue(conn, greeting)

	log.Info().Str("guild_id", p.guildID).Str("channel_id", channelID).Msg("Joined voice channel")
	return nil
}

// StartPlayback begins playing the queue head if nothing is playing.
// No-op when a track is already active or the queue is empty.
func (p *Player) StartPlayback() {
	p.Touch()

	p.mu.Lock()
	busy := p.playing
	empty := len(p.queue) == 0 && p.current == nil
	if !busy && !empty {
		// A fresh start posts a new status card instead of editing
		// whatever message is left over from the last session.
		p.forceNextCard = true
	}
	p.mu.Unlock()

	if busy || empty {
		return
	}
	p.playNext()
}

// playNext advances to the next queued track, refreshing stale stream URLs
// and skipping unplayable entries. The iteration is bounded by the queue
// length: every pass consumes one entry.
func (p *Player) playNext() {
	for {
		p.mu.Lock()
		if p.playing {
			p.mu.Unlock()
			return
		}

		next := p.dequeueNextLocked()
		if next == nil {
			connected := p.vc != nil
			p.mu.Unlock()
			if connected {
				p.Stop(StopQueueEnd)
			}
			return
		}

		p.current = next
		p.playing = true
		p.gen++
		gen := p.gen
		force := p.forceNextCard
		p.forceNextCard = false
		p.stopStream = make(chan struct{})
		p.stopOnce = &sync.Once{}
		p.ctrl = stream.NewControls(p.volume)
		ctrl := p.ctrl
		stop := p.stopStream
		vc := p.vc
		p.lastActivity = time.Now()
		p.mu.Unlock()

		if next.StreamURL == "" {
			url, err := p.refreshStreamURL(next)
			if err != nil || url == "" {
				log.Warn().Err(err).Str("guild_id", p.guildID).Str("title", next.Title).
					Msg("Stream URL refresh failed, skipping track")
				p.notify.Notice(fmt.Sprintf("Could not load **%s**, skipping it.", next.Title))
				p.mu.Lock()
				p.playing = false
				// Carry the fresh-start flag over to the entry that
				// does play.
				p.forceNextCard = force
				p.mu.Unlock()
				continue
			}
			next.StreamURL = url
		}

		// The connection may have dropped across the refresh await;
		// re-check right before starting the stream. The track goes back
		// to the queue head so a later start picks it up again.
		if vc == nil || !vc.Connected() {
			p.mu.Lock()
			p.playing = false
			if p.current == next {
				p.current = nil
				p.enqueueLocked(next, true)
			}
			p.mu.Unlock()
			return
		}

		p.notify.NowPlaying(p.nowPlayingLocked(force))
		log.Info().Str("guild_id", p.guildID).Str("title", next.Title).Msg("Now playing")

		go p.runStream(vc, next, ctrl, stop, gen)
		return
	}
}

// runStream owns one stream end to end and posts exactly one completion
// event for it.
func (p *Player) runStream(vc VoiceConn, t *track.Track, ctrl *stream.Controls, stop <-chan struct{}, gen int) {
	err := vc.Play(t.StreamURL, ctrl, stop)
	select {
	case p.events <- trackEnd{gen: gen, err: err}:
	case <-p.closed:
	}
}

// onTrackEnd applies repeat-mode re-queueing and advances. Runs only on the
// loop goroutine.
func (p *Player) onTrackEnd(ev trackEnd) {
	p.mu.Lock()
	if ev.gen != p.gen {
		// A stop tore this stream down already.
		p.mu.Unlock()
		return
	}
	p.playing = false
	finished := p.current
	if finished != nil {
		switch p.repeat {
		case RepeatOne:
			p.enqueueLocked(finished.Clone(), true)
		case RepeatAll:
			p.enqueueLocked(finished.Clone(), false)
		}
	}
	p.lastActivity = time.Now()
	p.mu.Unlock()

	if ev.err != nil && finished != nil {
		log.Error().Err(ev.err).Str("guild_id", p.guildID).Str("title", finished.Title).
			Msg("Stream ended with error")
		p.notify.Notice(fmt.Sprintf("Playback of **%s** failed, skipping ahead.", finished.Title))
	}

	p.playNext()
}

// Skip stops the current stream; the completion event advances the queue.
func (p *Player) Skip() error {
	p.mu.Lock()
	if !p.playing || p.stopOnce == nil {
		p.mu.Unlock()
		return ErrNothingPlaying
	}
	once, stop := p.stopOnce, p.stopStream
	p.lastActivity = time.Now()
	p.mu.Unlock()

	once.Do(func() { close(stop) })
	return nil
}

// PlayPrevious pops the newest history entry, requeues the current track
// (if any) behind it, and forces an advance to it.
func (p *Player) PlayPrevious() error {
	p.mu.Lock()
	if len(p.history) == 0 {
		p.mu.Unlock()
		return ErrNoHistory
	}
	last := p.history[len(p.history)-1]
	p.history = p.history[:len(p.history)-1]

	if p.current != nil {
		p.enqueueLocked(p.current.Clone(), true)
	}
	p.enqueueLocked(last.Clone(), true)

	// Clearing current keeps the finished stream's repeat handling and
	// history push from seeing the displaced track twice.
	p.current = nil
	wasPlaying := p.playing
	once, stop := p.stopOnce, p.stopStream
	p.lastActivity = time.Now()
	p.mu.Unlock()

	if wasPlaying {
		once.Do(func() { close(stop) })
	} else {
		p.playNext()
	}
	return nil
}

// Pause suspends the active stream in place.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing || p.ctrl == nil {
		return ErrNothingPlaying
	}
	p.ctrl.SetPaused(true)
	p.lastActivity = time.Now()
	return nil
}

// Resume continues a paused stream.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing || p.ctrl == nil {
		return ErrNothingPlaying
	}
	p.ctrl.SetPaused(false)
	p.lastActivity = time.Now()
	return nil
}

// Paused reports whether an active stream is currently paused.
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctrl != nil && p.ctrl.Paused()
}

// Stop tears the player down to idle: monitor cancelled, stream stopped,
// farewell cue (best-effort, bounded), connection released, queue and
// current cleared. Safe to call when already idle.
func (p *Player) Stop(cause StopCause) {
	p.stopMonitor()

	p.mu.Lock()
	p.gen++ // orphan any in-flight completion event
	if p.stopOnce != nil {
		once, stop := p.stopOnce, p.stopStream
		once.Do(func() { close(stop) })
	}
	p.playing = false
	p.queue = nil
	p.current = nil
	p.ctrl = nil
	p.stopOnce = nil
	p.stopStream = nil
	vc := p.vc
	p.vc = nil
	farewell := p.farewellSound
	p.lastActivity = time.Now()
	p.mu.Unlock()

	if vc != nil && vc.Connected() {
		p.playCue(vc, farewell)
		_ = vc.Disconnect()
	}

	if cause == StopQueueEnd {
		p.notify.Notice("Queue finished. Leaving the voice channel, good night.")
	}

	log.Info().Str("guild_id", p.guildID).Int("cause", int(cause)).Msg("Player stopped")
}

// SetVolume clamps and stores the volume, updating the live stream gain in
// place when one is active. Returns the stored value.
func (p *Player) SetVolume(v float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case v < 0.0:
		v = 0.0
	case v > 2.0:
		v = 2.0
	}
	p.volume = v
	if p.ctrl != nil {
		p.ctrl.SetVolume(v)
	}
	p.lastActivity = time.Now()
	return p.volume
}

// AdjustVolume shifts the volume by delta, clamped to [0.0, 2.0].
func (p *Player) AdjustVolume(delta float64) float64 {
	p.mu.Lock()
	v := p.volume + delta
	p.mu.Unlock()
	return p.SetVolume(v)
}

func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *Player) SetRepeatMode(mode RepeatMode) RepeatMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.repeat = mode
	p.lastActivity = time.Now()
	return p.repeat
}

func (p *Player) RepeatMode() RepeatMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.repeat
}

// Current returns the active track, or nil when idle.
func (p *Player) Current() *track.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// IsPlaying reports whether a stream is active (paused still counts).
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// VoiceChannelID returns the connected channel, or "" when idle.
func (p *Player) VoiceChannelID() string {
	p.mu.Lock()
	vc := p.vc
	p.mu.Unlock()
	if vc == nil || !vc.Connected() {
		return ""
	}
	return vc.ChannelID()
}

// RefreshNowPlaying re-renders the persistent status message.
func (p *Player) RefreshNowPlaying(forceNew bool) {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return
	}
	np := p.nowPlayingLockedUnsafe(forceNew)
	p.lastActivity = time.Now()
	p.mu.Unlock()

	p.notify.NowPlaying(np)
}

// nowPlayingLocked snapshots status without holding the lock (callers that
// already dropped it); nowPlayingLockedUnsafe requires the lock held.
func (p *Player) nowPlayingLocked(forceNew bool) NowPlaying {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nowPlayingLockedUnsafe(forceNew)
}

func (p *Player) nowPlayingLockedUnsafe(forceNew bool) NowPlaying {
	return NowPlaying{
		Track:    p.current,
		Volume:   p.volume,
		Repeat:   p.repeat,
		QueueLen: len(p.queue),
		ForceNew: forceNew,
	}
}

func (p *Player) refreshStreamURL(t *track.Track) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	return p.resolver.RefreshStreamURL(ctx, t)
}

// playCue plays a short local audio clip best-effort with a bounded wait.
// Failures are logged and ignored; cues are not correctness-relevant.
func (p *Player) playCue(vc VoiceConn, path string) {
	if path == "" || vc == nil || !vc.Connected() {
		return
	}

	stopCue := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- vc.Play(path, nil, stopCue) }()

	select {
	case err := <-done:
		if err != nil {
			log.Debug().Err(err).Str("guild_id", p.guildID).Str("cue", path).Msg("Cue playback failed")
		}
	case <-time.After(p.cueWait):
		close(stopCue)
		log.Debug().Str("guild_id", p.guildID).Str("cue", path).Msg("Cue playback timed out")
	}
}
