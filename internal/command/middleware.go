package command

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

type Middleware func(Command) Command

type wrappedCommand struct {
	Command
	wrap func(ctx *SlashInteractionContext) error
}

func (w *wrappedCommand) Run(ctx *SlashInteractionContext) error {
	if w.wrap != nil {
		return w.wrap(ctx)
	}
	return w.Command.Run(ctx)
}

func (w *wrappedCommand) SlashDefinition() *discordgo.ApplicationCommand {
	if sp, ok := w.Command.(SlashProvider); ok {
		return sp.SlashDefinition()
	}
	return nil
}

func ApplyMiddlewares(cmd Command, mws ...Middleware) Command {
	for _, mw := range mws {
		cmd = mw(cmd)
	}
	return cmd
}

// WithGuildOnly drops interactions that arrive outside a guild.
func WithGuildOnly() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx *SlashInteractionContext) error {
				if ctx.GuildID() == "" {
					return ctx.Responder().Reply("This command only works inside a server.", true)
				}
				return cmd.Run(ctx)
			},
		}
	}
}

// WithChannelAllowlist rejects commands invoked outside the guild's
// configured command channels. An empty allowlist permits every channel.
func WithChannelAllowlist() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx *SlashInteractionContext) error {
				if ctx.Storage != nil && ctx.GuildID() != "" {
					allowed, err := ctx.Storage.IsChannelAllowed(ctx.GuildID(), ctx.Event.ChannelID)
					if err != nil {
						log.Warn().Err(err).Str("guild_id", ctx.GuildID()).
							Msg("Channel allowlist lookup failed")
					} else if !allowed {
						return ctx.Responder().Reply("I don't take requests in this channel. Check `/channels list`.", true)
					}
				}
				return cmd.Run(ctx)
			},
		}
	}
}

// WithManageServerCheck enforces the Manage Server permission for commands
// that require it.
func WithManageServerCheck() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx *SlashInteractionContext) error {
				if !cmd.RequireManageServer() {
					return cmd.Run(ctx)
				}
				if ctx.Event.Member == nil ||
					ctx.Event.Member.Permissions&discordgo.PermissionManageServer == 0 {
					return ctx.Responder().Reply("You need the Manage Server permission for that.", true)
				}
				return cmd.Run(ctx)
			},
		}
	}
}

// WithCommandLogger records every invocation with its outcome and timing.
func WithCommandLogger() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx *SlashInteractionContext) error {
				start := time.Now()
				err := cmd.Run(ctx)

				ev := log.Info()
				if err != nil {
					ev = log.Error().Err(err)
				}
				ev.Str("command", cmd.Name()).
					Str("guild_id", ctx.GuildID()).
					Str("user_id", ctx.UserID()).
					Str("user", ctx.Username()).
					Dur("took", time.Since(start)).
					Msg("Command executed")

				return err
			},
		}
	}
}
