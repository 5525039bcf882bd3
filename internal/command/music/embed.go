package music

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/honey001700-lgtm/Durazno/internal/command"
	"github.com/honey001700-lgtm/Durazno/internal/music/player"
)

// NowPlayingEmbed renders the status card used both by /music nowplaying
// and the persistent now-playing message.
func NowPlayingEmbed(np player.NowPlaying) *discordgo.MessageEmbed {
	t := np.Track
	embed := &discordgo.MessageEmbed{
		Title:       "Now Playing",
		Description: fmt.Sprintf("[%s](%s)", t.Title, t.PageURL),
		Color:       command.EmbedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Duration", Value: t.FormatDuration(), Inline: true},
			{Name: "Volume", Value: fmt.Sprintf("%d%%", int(np.Volume*100)), Inline: true},
			{Name: "Repeat", Value: repeatLabel(np.Repeat), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%d tracks pending", np.QueueLen),
		},
	}
	if t.Uploader != "" {
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Channel", Value: t.Uploader, Inline: true})
	}
	if t.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: t.Thumbnail}
	}
	if t.RequesterID != "" {
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Requested by", Value: fmt.Sprintf("<@%s>", t.RequesterID), Inline: true})
	}
	return embed
}

func repeatLabel(mode player.RepeatMode) string {
	switch mode {
	case player.RepeatOne:
		return "🔂 track"
	case player.RepeatAll:
		return "🔁 queue"
	default:
		return "off"
	}
}
