package music

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/honey001700-lgtm/Durazno/internal/command"
)

// ChannelsCommand maintains the guild's command-channel allowlist.
type ChannelsCommand struct{}

func (c *ChannelsCommand) Name() string              { return "channels" }
func (c *ChannelsCommand) Description() string       { return "Restrict where music commands may be used" }
func (c *ChannelsCommand) Category() string          { return "🛠️ Setup" }
func (c *ChannelsCommand) RequireManageServer() bool { return true }

func (c *ChannelsCommand) SlashDefinition() *discordgo.ApplicationCommand {
	channelOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionChannel,
		Name:        "channel",
		Description: "Text channel",
		Required:    true,
		ChannelTypes: []discordgo.ChannelType{
			discordgo.ChannelTypeGuildText,
		},
	}
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "add",
				Description: "Allow music commands in a channel",
				Options:     []*discordgo.ApplicationCommandOption{channelOpt},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "remove",
				Description: "Disallow music commands in a channel",
				Options:     []*discordgo.ApplicationCommandOption{channelOpt},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "Show the allowed channels",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "clear",
				Description: "Remove the restriction entirely",
			},
		},
	}
}

func (c *ChannelsCommand) Run(ctx *command.SlashInteractionContext) error {
	opts := ctx.Options()
	if len(opts) == 0 {
		return ctx.Responder().Reply("Pick a subcommand.", true)
	}
	sub := opts[0]

	switch sub.Name {
	case "add":
		ch := sub.Options[0].ChannelValue(ctx.Session)
		added, err := ctx.Storage.AddChannel(ctx.GuildID(), ch.ID)
		if err != nil {
			return err
		}
		if !added {
			return ctx.Responder().Reply(fmt.Sprintf("<#%s> is already on the list.", ch.ID), true)
		}
		return ctx.Responder().Reply(fmt.Sprintf("Music commands are now allowed in <#%s>.", ch.ID), false)

	case "remove":
		ch := sub.Options[0].ChannelValue(ctx.Session)
		removed, err := ctx.Storage.RemoveChannel(ctx.GuildID(), ch.ID)
		if err != nil {
			return err
		}
		if !removed {
			return ctx.Responder().Reply(fmt.Sprintf("<#%s> wasn't on the list.", ch.ID), true)
		}
		return ctx.Responder().Reply(fmt.Sprintf("Removed <#%s> from the list.", ch.ID), false)

	case "list":
		channels, err := ctx.Storage.ListChannels(ctx.GuildID())
		if err != nil {
			return err
		}
		if len(channels) == 0 {
			return ctx.Responder().Reply("No restriction set. Music commands work everywhere.", true)
		}
		mentions := make([]string, 0, len(channels))
		for _, id := range channels {
			mentions = append(mentions, fmt.Sprintf("<#%s>", id))
		}
		return ctx.Responder().Reply("Music commands are allowed in: "+strings.Join(mentions, ", "), false)

	case "clear":
		ctx.Storage.ClearChannels(ctx.GuildID())
		return ctx.Responder().Reply("Cleared. Music commands work everywhere again.", false)
	}
	return ctx.Responder().Reply("I don't know that subcommand.", true)
}
