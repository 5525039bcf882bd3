package command

import (
	"github.com/bwmarrin/discordgo"
)

// Responder abstracts where a reply lands. Each transport shape
// (un-acknowledged interaction, deferred followup, raw channel) gets a
// concrete variant, so handlers don't care which one they hold.
type Responder interface {
	Reply(text string, ephemeral bool) error
}

// InteractionResponder answers an interaction that has not been
// acknowledged yet. Discord allows exactly one such response.
type InteractionResponder struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
}

func (r *InteractionResponder) Reply(text string, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{Content: text}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return r.Session.InteractionRespond(r.Event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// FollowupResponder completes an interaction that was deferred with Defer.
type FollowupResponder struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
}

func (r *FollowupResponder) Reply(text string, ephemeral bool) error {
	params := &discordgo.WebhookParams{Content: text}
	if ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	_, err := r.Session.FollowupMessageCreate(r.Event.Interaction, true, params)
	return err
}

// ChannelResponder posts to a plain text channel, for messages with no
// interaction to anchor to. Ephemeral has no meaning here and is ignored.
type ChannelResponder struct {
	Session   *discordgo.Session
	ChannelID string
}

func (r *ChannelResponder) Reply(text string, _ bool) error {
	_, err := r.Session.ChannelMessageSend(r.ChannelID, text)
	return err
}

// Responder returns the immediate-reply variant for this interaction.
func (c *SlashInteractionContext) Responder() Responder {
	return &InteractionResponder{Session: c.Session, Event: c.Event}
}

// FollowupResponder returns the deferred-reply variant; valid only after
// Defer has acknowledged the interaction.
func (c *SlashInteractionContext) FollowupResponder() Responder {
	return &FollowupResponder{Session: c.Session, Event: c.Event}
}
