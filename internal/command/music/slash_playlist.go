package music

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/honey001700-lgtm/Durazno/internal/command"
	"github.com/honey001700-lgtm/Durazno/internal/music/resolver"
	"github.com/honey001700-lgtm/Durazno/internal/music/track"
	"github.com/honey001700-lgtm/Durazno/internal/storage"
)

// PlaylistCommand manages per-user saved playlists. Entries store metadata
// only; stream URLs get resolved lazily on playback.
type PlaylistCommand struct {
	deps Deps
}

func (c *PlaylistCommand) Name() string              { return "playlist" }
func (c *PlaylistCommand) Description() string       { return "Manage your saved playlists" }
func (c *PlaylistCommand) Category() string          { return "🎵 Music" }
func (c *PlaylistCommand) RequireManageServer() bool { return false }

func (c *PlaylistCommand) SlashDefinition() *discordgo.ApplicationCommand {
	nameOpt := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "name",
			Description: desc,
			Required:    true,
		}
	}
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "create",
				Description: "Create an empty playlist",
				Options:     []*discordgo.ApplicationCommandOption{nameOpt("Playlist name")},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "delete",
				Description: "Delete one of your playlists",
				Options:     []*discordgo.ApplicationCommandOption{nameOpt("Playlist name")},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "add",
				Description: "Add a song or playlist link to a playlist",
				Options: []*discordgo.ApplicationCommandOption{
					nameOpt("Playlist name"),
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
				Name:        "remove",
				Description: "Remove one entry from a playlist",
				Options: []*discordgo.ApplicationCommandOption{
					nameOpt("Playlist name"),
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "position",
						Description: "Entry number as shown by /playlist show",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "show",
				Description: "List the entries of a playlist",
				Options:     []*discordgo.ApplicationCommandOption{nameOpt("Playlist name")},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "List your playlists",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "play",
				Description: "Queue an entire playlist",
				Options:     []*discordgo.ApplicationCommandOption{nameOpt("Playlist name")},
			},
		},
	}
}

func (c *PlaylistCommand) Run(ctx *command.SlashInteractionContext) error {
	opts := ctx.Options()
	if len(opts) == 0 {
		return ctx.Responder().Reply("Pick a subcommand.", true)
	}
	sub := opts[0]

	switch sub.Name {
	case "create":
		return c.runCreate(ctx, sub.Options[0].StringValue())
	case "delete":
		return c.runDelete(ctx, sub.Options[0].StringValue())
	case "add":
		return c.runAdd(ctx, sub.Options[0].StringValue(), sub.Options[1].StringValue())
	case "remove":
		return c.runRemove(ctx, sub.Options[0].StringValue(), int(sub.Options[1].IntValue()))
	case "show":
		return c.runShow(ctx, sub.Options[0].StringValue())
	case "list":
		return c.runList(ctx)
	case "play":
		return c.runPlay(ctx, sub.Options[0].StringValue())
	}
	return ctx.Responder().Reply("I don't know that subcommand.", true)
}

func (c *PlaylistCommand) runCreate(ctx *command.SlashInteractionContext, name string) error {
	created, err := ctx.Storage.CreatePlaylist(ctx.UserID(), name)
	if err != nil {
		return err
	}
	if !created {
		return ctx.Responder().Reply(fmt.Sprintf("You already have a playlist called **%s** (or the name is empty).", name), true)
	}
	return ctx.Responder().Reply(fmt.Sprintf("Created playlist **%s**.", name), false)
}

func (c *PlaylistCommand) runDelete(ctx *command.SlashInteractionContext, name string) error {
	deleted, err := ctx.Storage.DeletePlaylist(ctx.UserID(), name)
	if err != nil {
		return err
	}
	if !deleted {
		return ctx.Responder().Reply(fmt.Sprintf("You don't have a playlist called **%s**.", name), true)
	}
	return ctx.Responder().Reply(fmt.Sprintf("Deleted playlist **%s**.", name), false)
}

func (c *PlaylistCommand) runAdd(ctx *command.SlashInteractionContext, name, query string) error {
	if _, exists, err := ctx.Storage.GetPlaylist(ctx.UserID(), name); err != nil {
		return err
	} else if !exists {
		return ctx.Responder().Reply(fmt.Sprintf("You don't have a playlist called **%s**. Create it first.", name), true)
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

	entries := make([]storage.PlaylistEntry, 0, len(tracks))
	for _, t := range tracks {
		entries = append(entries, storage.PlaylistEntry{
			Query:       t.PageURL,
			Title:       t.Title,
			Source:      t.Source,
			Thumbnail:   t.Thumbnail,
			Uploader:    t.Uploader,
			DurationSec: int(t.Duration.Seconds()),
			UserQuery:   query,
		})
	}
	if _, err := ctx.Storage.AddTracks(ctx.UserID(), name, entries); err != nil {
		return err
	}

	if len(entries) == 1 {
		return ctx.FollowupResponder().Reply(fmt.Sprintf("Added **%s** to **%s**.", entries[0].Title, name), false)
	}
	return ctx.FollowupResponder().Reply(fmt.Sprintf("Added **%d** tracks to **%s**.", len(entries), name), false)
}

func (c *PlaylistCommand) runRemove(ctx *command.SlashInteractionContext, name string, position int) error {
	removed, err := ctx.Storage.RemoveTrack(ctx.UserID(), name, position-1)
	if err != nil {
		return err
	}
	if removed == nil {
		return ctx.Responder().Reply("No such playlist or position. Check `/playlist show`.", true)
	}
	return ctx.Responder().Reply(fmt.Sprintf("Removed **%s** from **%s**.", removed.Title, name), false)
}

func (c *PlaylistCommand) runShow(ctx *command.SlashInteractionContext, name string) error {
	entries, exists, err := ctx.Storage.GetPlaylist(ctx.UserID(), name)
	if err != nil {
		return err
	}
	if !exists {
		return ctx.Responder().Reply(fmt.Sprintf("You don't have a playlist called **%s**.", name), true)
	}
	if len(entries) == 0 {
		return ctx.Responder().Reply(fmt.Sprintf("**%s** is empty. Add something with `/playlist add`.", name), true)
	}

	var b strings.Builder
	shown := entries
	if len(shown) > queueDisplayLimit {
		shown = shown[:queueDisplayLimit]
	}
	for i, e := range shown {
		fmt.Fprintf(&b, "%d. **%s**\n", i+1, e.Title)
	}
	if extra := len(entries) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "…and %d more", extra)
	}

	return command.RespondEmbed(ctx.Session, ctx.Event, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Playlist: %s", name),
		Description: b.String(),
		Color:       command.EmbedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d entries", len(entries))},
	})
}

func (c *PlaylistCommand) runList(ctx *command.SlashInteractionContext) error {
	lists, err := ctx.Storage.ListPlaylists(ctx.UserID())
	if err != nil {
		return err
	}
	if len(lists) == 0 {
		return ctx.Responder().Reply("You have no playlists yet. Start with `/playlist create`.", true)
	}

	var b strings.Builder
	for name, entries := range lists {
		fmt.Fprintf(&b, "• **%s** (%d entries)\n", name, len(entries))
	}
	return command.RespondEmbed(ctx.Session, ctx.Event, &discordgo.MessageEmbed{
		Title:       "Your playlists",
		Description: b.String(),
		Color:       command.EmbedColor,
	})
}

func (c *PlaylistCommand) runPlay(ctx *command.SlashInteractionContext, name string) error {
	entries, exists, err := ctx.Storage.GetPlaylist(ctx.UserID(), name)
	if err != nil {
		return err
	}
	if !exists || len(entries) == 0 {
		return ctx.Responder().Reply(fmt.Sprintf("**%s** doesn't exist or is empty.", name), true)
	}

	voiceCh := c.deps.Players.UserVoiceChannel(ctx.GuildID(), ctx.UserID())
	if voiceCh == "" {
		return ctx.Responder().Reply("Join a voice channel first, then ask again.", true)
	}
	p := c.deps.Players.Player(ctx.GuildID())
	if cur := p.VoiceChannelID(); cur != "" && cur != voiceCh {
		return ctx.Responder().Reply("I'm already playing in another voice channel. Come join me there.", true)
	}

	if err := command.Defer(ctx.Session, ctx.Event); err != nil {
		return err
	}

	// Stream URLs are left blank here; the player refreshes them one at a
	// time as each entry comes up.
	tracks := make([]*track.Track, 0, len(entries))
	for _, e := range entries {
		tracks = append(tracks, &track.Track{
			Title:       e.Title,
			PageURL:     e.Query,
			Duration:    time.Duration(e.DurationSec) * time.Second,
			Thumbnail:   e.Thumbnail,
			Uploader:    e.Uploader,
			Source:      e.Source,
			RequesterID: ctx.UserID(),
		})
	}

	alreadyActive := p.IsPlaying()
	p.EnqueueMany(tracks)
	if err := p.EnsureVoice(voiceCh); err != nil {
		_ = ctx.FollowupResponder().Reply("I couldn't join your voice channel.", false)
		return err
	}
	p.StartPlayback()
	if alreadyActive {
		p.RefreshNowPlaying(true)
	}

	return ctx.FollowupResponder().Reply(fmt.Sprintf("Queued **%d** tracks from **%s**.", len(tracks), name), false)
}
