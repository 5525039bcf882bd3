// Package command defines the slash command surface: the Command contract,
// the registry, and the middleware chain commands are wrapped in before
// the gateway dispatches to them.
package command

import (
	"github.com/bwmarrin/discordgo"

	"github.com/honey001700-lgtm/Durazno/internal/storage"
)

type Command interface {
	Name() string
	Description() string
	Category() string
	RequireManageServer() bool
	Run(ctx *SlashInteractionContext) error
}

// SlashProvider exposes the Discord application command definition used
// during registration.
type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// SlashInteractionContext is what the runtime hands a command when
// executing it.
type SlashInteractionContext struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
	Storage *storage.Storage
}

// GuildID returns the guild the interaction came from ("" in DMs).
func (c *SlashInteractionContext) GuildID() string {
	return c.Event.GuildID
}

// UserID returns the invoking user's ID regardless of guild/DM context.
func (c *SlashInteractionContext) UserID() string {
	if c.Event.Member != nil && c.Event.Member.User != nil {
		return c.Event.Member.User.ID
	}
	if c.Event.User != nil {
		return c.Event.User.ID
	}
	return ""
}

// Username returns the invoking user's name for logging.
func (c *SlashInteractionContext) Username() string {
	if c.Event.Member != nil && c.Event.Member.User != nil {
		return c.Event.Member.User.Username
	}
	if c.Event.User != nil {
		return c.Event.User.Username
	}
	return ""
}

// Options returns the interaction's top-level options.
func (c *SlashInteractionContext) Options() []*discordgo.ApplicationCommandInteractionDataOption {
	return c.Event.ApplicationCommandData().Options
}
