package music

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/honey001700-lgtm/Durazno/internal/command"
	"github.com/honey001700-lgtm/Durazno/internal/music/player"
	"github.com/honey001700-lgtm/Durazno/internal/music/resolver"
)

const queueDisplayLimit = 15

type MusicCommand struct {
	deps Deps
}

func (c *MusicCommand) Name() string              { return "music" }
func (c *MusicCommand) Description() string       { return "Play music in your voice channel" }
func (c *MusicCommand) Category() string          { return "🎵 Music" }
func (c *MusicCommand) RequireManageServer() bool { return false }

func (c *MusicCommand) SlashDefinition() *discordgo.ApplicationCommand {
	var volumeMin float64 = 0
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "play",
				Description: "Queue a song, video URL, or playlist URL",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "query",
						Description: "Search text or a YouTube link",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "search",
				Description: "Search YouTube without queueing anything",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "query",
						Description: "Search text",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "queue",
				Description: "Show the pending queue",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "nowplaying",
				Description: "Show the current track",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "skip",
				Description: "Skip the current track",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "previous",
				Description: "Go back to the last played track",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "pause",
				Description: "Pause playback",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "resume",
				Description: "Resume paused playback",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "shuffle",
				Description: "Shuffle the pending queue",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "repeat",
				Description: "Set the repeat mode",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "mode",
						Description: "What to repeat",
						Required:    true,
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "off", Value: string(player.RepeatNone)},
							{Name: "current track", Value: string(player.RepeatOne)},
							{Name: "whole queue", Value: string(player.RepeatAll)},
						},
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "volume",
				Description: "Set the playback volume",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "percent",
						Description: "Volume from 0 to 200",
						Required:    true,
						MinValue:    &volumeMin,
						MaxValue:    200,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "stop",
				Description: "Stop playback, clear the queue, and leave",
			},
		},
	}
}

func (c *MusicCommand) Run(ctx *command.SlashInteractionContext) error {
	opts := ctx.Options()
	if len(opts) == 0 {
		return ctx.Responder().Reply("Pick a subcommand.", true)
	}
	sub := opts[0]

	p := c.deps.Players.Player(ctx.GuildID())
	p.Touch()

	if controlSubcommand(sub.Name) && !sharesVoiceChannel(c.deps.Players, ctx.GuildID(), ctx.UserID(), p) {
		return ctx.Responder().Reply("You need to be in my voice channel to control playback.", true)
	}

	switch sub.Name {
	case "play":
		return c.runPlay(ctx, p, sub.Options[0].StringValue())
	case "search":
		return c.runSearch(ctx, sub.Options[0].StringValue())
	case "queue":
		return c.runQueue(ctx, p)
	case "nowplaying":
		return c.runNowPlaying(ctx, p)
	case "skip":
		return c.runSkip(ctx, p)
	case "previous":
		return c.runPrevious(ctx, p)
	case "pause":
		return c.runPause(ctx, p)
	case "resume":
		return c.runResume(ctx, p)
	case "shuffle":
		return ctx.Responder().Reply(fmt.Sprintf("Shuffled **%d** pending tracks.", p.Shuffle()), false)
	case "repeat":
		return c.runRepeat(ctx, p, sub.Options[0].StringValue())
	case "volume":
		return c.runVolume(ctx, p, sub.Options[0].IntValue())
	case "stop":
		return c.runStop(ctx, p)
	}
	return ctx.Responder().Reply("I don't know that subcommand.", true)
}

// controlSubcommand reports whether a subcommand alters live playback and
// therefore requires the caller to share the player's voice channel.
func controlSubcommand(name string) bool {
	switch name {
	case "skip", "previous", "pause", "resume", "shuffle", "repeat", "volume", "stop":
		return true
	}
	return false
}

// sharesVoiceChannel passes when the player has no voice connection (the
// handlers answer "nothing playing" themselves) or when the caller sits in
// the same channel the player is connected to.
func sharesVoiceChannel(m Manager, guildID, userID string, p *player.Player) bool {
	playerCh := p.VoiceChannelID()
	if playerCh == "" {
		return true
	}
	return m.UserVoiceChannel(guildID, userID) == playerCh
}

func (c *MusicCommand) runPlay(ctx *command.SlashInteractionContext, p *player.Player, query string) error {
	voiceCh := c.deps.Players.UserVoiceChannel(ctx.GuildID(), ctx.UserID())
	if voiceCh == "" {
		return ctx.Responder().Reply("Join a voice channel first, then ask again.", true)
	}
	if cur := p.VoiceChannelID(); cur != "" && cur != voiceCh {
		return ctx.Responder().Reply("I'm already playing in another voice channel. Come join me there.", true)
	}

	if err := command.Defer(ctx.Session, ctx.Event); err != nil {
		return err
	}

	rctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	tracks, err := c.deps.Resolver.Resolve(rctx, query, ctx.UserID())
	if err != nil {
		if errors.Is(err, resolver.ErrNoResults) {
			return ctx.FollowupResponder().Reply("I couldn't find anything for that.", false)
		}
		_ = ctx.FollowupResponder().Reply("Something went wrong loading that. Try again in a bit.", false)
		return fmt.Errorf("resolve %q: %w", query, err)
	}

	alreadyActive := p.IsPlaying()
	p.EnqueueMany(tracks)

	if err := p.EnsureVoice(voiceCh); err != nil {
		_ = ctx.FollowupResponder().Reply("I couldn't join your voice channel.", false)
		return err
	}
	p.StartPlayback()
	if alreadyActive {
		// Re-post the status card so it lands below the queue additions.
		p.RefreshNowPlaying(true)
	}

	if len(tracks) == 1 {
		t := tracks[0]
		return ctx.FollowupResponder().Reply(fmt.Sprintf("Queued **%s** `%s`.", t.Title, t.FormatDuration()), false)
	}
	return ctx.FollowupResponder().Reply(fmt.Sprintf("Queued **%d** tracks from that playlist.", len(tracks)), false)
}

func (c *MusicCommand) runSearch(ctx *command.SlashInteractionContext, query string) error {
	if err := command.Defer(ctx.Session, ctx.Event); err != nil {
		return err
	}

	rctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	results, err := c.deps.Resolver.SearchTitles(rctx, query, 5)
	if err != nil {
		if errors.Is(err, resolver.ErrNoResults) {
			return ctx.FollowupResponder().Reply("Nothing came up for that search.", false)
		}
		_ = ctx.FollowupResponder().Reply("Search failed. Try again in a bit.", false)
		return fmt.Errorf("search %q: %w", query, err)
	}

	var b strings.Builder
	for i, t := range results {
		fmt.Fprintf(&b, "%d. [%s](%s) `%s`\n", i+1, t.Title, t.PageURL, t.FormatDuration())
	}
	return command.FollowupEmbed(ctx.Session, ctx.Event, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Results for “%s”", query),
		Description: b.String(),
		Color:       command.EmbedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Use /music play with a link to queue one"},
	})
}

func (c *MusicCommand) runQueue(ctx *command.SlashInteractionContext, p *player.Player) error {
	lines := p.FormattedQueue()
	cur := p.Current()
	if cur == nil && len(lines) == 0 {
		return ctx.Responder().Reply("The queue is empty.", true)
	}

	var b strings.Builder
	if cur != nil {
		fmt.Fprintf(&b, "▶️ **%s** `%s`\n\n", cur.Title, cur.FormatDuration())
	}
	shown := lines
	if len(shown) > queueDisplayLimit {
		shown = shown[:queueDisplayLimit]
	}
	b.WriteString(strings.Join(shown, "\n"))
	if extra := len(lines) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "\n…and %d more", extra)
	}

	return command.RespondEmbed(ctx.Session, ctx.Event, &discordgo.MessageEmbed{
		Title:       "Queue",
		Description: b.String(),
		Color:       command.EmbedColor,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%d pending · repeat %s", len(lines), p.RepeatMode()),
		},
	})
}

func (c *MusicCommand) runNowPlaying(ctx *command.SlashInteractionContext, p *player.Player) error {
	cur := p.Current()
	if cur == nil {
		return ctx.Responder().Reply("Nothing is playing right now.", true)
	}
	return command.RespondEmbed(ctx.Session, ctx.Event, NowPlayingEmbed(player.NowPlaying{
		Track:    cur,
		Volume:   p.Volume(),
		Repeat:   p.RepeatMode(),
		QueueLen: p.QueueLen(),
	}))
}

func (c *MusicCommand) runSkip(ctx *command.SlashInteractionContext, p *player.Player) error {
	if err := p.Skip(); err != nil {
		return ctx.Responder().Reply("Nothing is playing, nothing to skip.", true)
	}
	return ctx.Responder().Reply("Skipped. ⏭️", false)
}

func (c *MusicCommand) runPrevious(ctx *command.SlashInteractionContext, p *player.Player) error {
	if err := p.PlayPrevious(); err != nil {
		return ctx.Responder().Reply("There's nothing before this track.", true)
	}
	return ctx.Responder().Reply("Going back to the previous track. ⏮️", false)
}

func (c *MusicCommand) runPause(ctx *command.SlashInteractionContext, p *player.Player) error {
	if err := p.Pause(); err != nil {
		return ctx.Responder().Reply("Nothing is playing to pause.", true)
	}
	return ctx.Responder().Reply("Paused. ⏸️", false)
}

func (c *MusicCommand) runResume(ctx *command.SlashInteractionContext, p *player.Player) error {
	if err := p.Resume(); err != nil {
		return ctx.Responder().Reply("Nothing is paused right now.", true)
	}
	return ctx.Responder().Reply("Resumed. ▶️", false)
}

func (c *MusicCommand) runRepeat(ctx *command.SlashInteractionContext, p *player.Player, mode string) error {
	set := p.SetRepeatMode(player.RepeatMode(mode))
	p.RefreshNowPlaying(false)
	switch set {
	case player.RepeatOne:
		return ctx.Responder().Reply("Repeating the current track. 🔂", false)
	case player.RepeatAll:
		return ctx.Responder().Reply("Repeating the whole queue. 🔁", false)
	default:
		return ctx.Responder().Reply("Repeat is off.", false)
	}
}

func (c *MusicCommand) runVolume(ctx *command.SlashInteractionContext, p *player.Player, percent int64) error {
	v := p.SetVolume(float64(percent) / 100.0)
	p.RefreshNowPlaying(false)
	return ctx.Responder().Reply(fmt.Sprintf("Volume set to **%d%%**.", int(v*100)), false)
}

func (c *MusicCommand) runStop(ctx *command.SlashInteractionContext, p *player.Player) error {
	// The farewell cue can hold the teardown past the interaction
	// deadline, so acknowledge first.
	if err := command.Defer(ctx.Session, ctx.Event); err != nil {
		return err
	}
	p.Stop(player.StopManual)
	return ctx.FollowupResponder().Reply("Stopped, cleared the queue, and left. 👋", false)
}
