package music

import (
	"github.com/honey001700-lgtm/Durazno/internal/command"
)

// Register wires the music commands into the global registry with the
// standard middleware chain.
func Register(deps Deps) {
	for _, cmd := range []command.Command{
		&MusicCommand{deps: deps},
		&PlaylistCommand{deps: deps},
		&ChannelsCommand{},
	} {
		command.Register(command.ApplyMiddlewares(cmd,
			command.WithManageServerCheck(),
			command.WithChannelAllowlist(),
			command.WithGuildOnly(),
			command.WithCommandLogger(),
		))
	}
}
