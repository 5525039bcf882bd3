package player

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// startMonitor launches the inactivity watcher for the current voice
// session, replacing (and awaiting) any previous one so at most a single
// monitor exists per player.
func (p *Player) startMonitor() {
	p.stopMonitor()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	p.monitorCancel = cancel
	p.monitorDone = done
	p.mu.Unlock()

	go p.monitorLoop(ctx, done)
}

// stopMonitor cancels the watcher and waits for it to exit.
func (p *Player) stopMonitor() {
	p.mu.Lock()
	cancel := p.monitorCancel
	done := p.monitorDone
	p.monitorCancel = nil
	p.monitorDone = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// monitorLoop polls for idleness. On timeout it hands teardown to a fresh
// goroutine and returns, so the Stop it triggers never waits on the
// monitor's own exit.
func (p *Player) monitorLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.Lock()
			vc := p.vc
			idle := time.Since(p.lastActivity)
			timeout := p.idleTimeout
			p.mu.Unlock()

			if vc == nil || !vc.Connected() {
				return
			}
			if idle >= timeout {
				log.Info().Str("guild_id", p.guildID).Dur("idle", idle).
					Msg("Inactivity timeout reached, stopping player")
				p.notify.Notice(fmt.Sprintf(
					"Nothing happened for %d minutes, so I'm packing up.",
					int(timeout.Minutes())))
				go p.Stop(StopInactivity)
				return
			}
		}
	}
}

// monitorRunning reports whether an inactivity watcher is alive.
func (p *Player) monitorRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.monitorDone != nil
}
