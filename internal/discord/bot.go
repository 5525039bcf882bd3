// Package discord runs the gateway session: command registration,
// interaction dispatch, and the per-guild player lifecycle.
package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/honey001700-lgtm/Durazno/internal/command"
	cmdmusic "github.com/honey001700-lgtm/Durazno/internal/command/music"
	"github.com/honey001700-lgtm/Durazno/internal/config"
	"github.com/honey001700-lgtm/Durazno/internal/music/player"
	"github.com/honey001700-lgtm/Durazno/internal/music/resolver"
	"github.com/honey001700-lgtm/Durazno/internal/storage"
)

// Bot is the Discord-facing runtime. One player per guild, created lazily.
type Bot struct {
	dg       *discordgo.Session
	cfg      *config.Config
	store    *storage.Storage
	resolver *resolver.TrackResolver

	mu       sync.Mutex
	sessions map[string]*guildSession
}

type guildSession struct {
	player *player.Player
	notify *Notifier
}

// StartBot opens the gateway and blocks until ctx is cancelled.
func StartBot(ctx context.Context, cfg *config.Config, store *storage.Storage) error {
	b := &Bot{
		cfg:      cfg,
		store:    store,
		resolver: resolver.New(),
		sessions: make(map[string]*guildSession),
	}

	cmdmusic.Register(cmdmusic.Deps{Players: b, Resolver: b.resolver})

	return b.run(ctx, cfg.DiscordToken)
}

func (b *Bot) run(ctx context.Context, token string) error {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	b.dg = dg

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages

	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onInteractionCreate)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	defer dg.Close()

	<-ctx.Done()
	log.Info().Msg("Shutdown signal received, stopping players")
	b.shutdownPlayers()
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Info().Str("username", r.User.Username).Int("guilds", len(r.Guilds)).Msg("Gateway ready")
	if err := b.registerCommands(); err != nil {
		log.Error().Err(err).Msg("Slash command registration failed")
	}
}

// registerCommands overwrites the application's global command set with
// the local registry.
func (b *Bot) registerCommands() error {
	var defs []*discordgo.ApplicationCommand
	for _, c := range command.All() {
		if sp, ok := c.(command.SlashProvider); ok {
			if def := sp.SlashDefinition(); def != nil {
				defs = append(defs, def)
			}
		}
	}

	_, err := b.dg.ApplicationCommandBulkOverwrite(b.dg.State.User.ID, "", defs)
	if err != nil {
		return fmt.Errorf("bulk overwrite commands: %w", err)
	}
	log.Info().Int("count", len(defs)).Msg("Slash commands registered")
	return nil
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := i.ApplicationCommandData().Name
	cmd, ok := command.Get(name)
	if !ok {
		log.Warn().Str("command", name).Msg("Interaction for unknown command")
		return
	}

	// Player notices land in whichever channel the guild last used.
	if i.GuildID != "" {
		b.notifierFor(i.GuildID).SetChannel(i.ChannelID)
	}

	go func() {
		if err := cmd.Run(&command.SlashInteractionContext{
			Session: s,
			Event:   i,
			Storage: b.store,
		}); err != nil {
			log.Error().Err(err).Str("command", name).Str("guild_id", i.GuildID).
				Msg("Command returned error")
		}
	}()
}

// Player implements the music command manager contract.
func (b *Bot) Player(guildID string) *player.Player {
	return b.sessionFor(guildID).player
}

// UserVoiceChannel returns the voice channel a user currently occupies,
// or "" when they are not in voice.
func (b *Bot) UserVoiceChannel(guildID, userID string) string {
	g, err := b.dg.State.Guild(guildID)
	if err != nil {
		return ""
	}
	for _, vs := range g.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID
		}
	}
	return ""
}

func (b *Bot) sessionFor(guildID string) *guildSession {
	b.mu.Lock()
	defer b.mu.Unlock()

	gs, ok := b.sessions[guildID]
	if !ok {
		notify := NewNotifier(b.dg, guildID)
		p := player.New(guildID, b.resolver, &voiceDialer{dg: b.dg}, notify)
		p.SetCues(b.cfg.GreetingSound, b.cfg.FarewellSound)
		gs = &guildSession{player: p, notify: notify}
		b.sessions[guildID] = gs
	}
	return gs
}

func (b *Bot) notifierFor(guildID string) *Notifier {
	return b.sessionFor(guildID).notify
}

func (b *Bot) shutdownPlayers() {
	b.mu.Lock()
	sessions := make([]*guildSession, 0, len(b.sessions))
	for _, gs := range b.sessions {
		sessions = append(sessions, gs)
	}
	b.mu.Unlock()

	var wg sync.WaitGroup
	for _, gs := range sessions {
		wg.Add(1)
		go func(gs *guildSession) {
			defer wg.Done()
			gs.player.Stop(player.StopManual)
			gs.player.Close()
		}(gs)
	}
	wg.Wait()
}
