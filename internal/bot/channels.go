// internal/bot/channels.go
package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

const privateChannelPermissions = discordgo.PermissionViewChannel |
	discordgo.PermissionSendMessages |
	discordgo.PermissionReadMessageHistory

// Channels manages match and tournament channels through the Discord REST API.
type Channels struct {
	session *discordgo.Session
}

func NewChannels(s *discordgo.Session) *Channels {
	return &Channels{session: s}
}

func (c *Channels) CreateMatchChannel(ctx context.Context, guildID, name string) (string, error) {
	channel, err := c.session.GuildChannelCreate(guildID, name, discordgo.ChannelTypeGuildText, discordgo.WithContext(ctx))
	if err != nil {
		return "", errors.Wrapf(err, "create channel %s", name)
	}
	return channel.ID, nil
}

// CreatePrivateChannel creates a text channel only memberIDs and the bot can see.
func (c *Channels) CreatePrivateChannel(ctx context.Context, guildID, name string, memberIDs ...string) (string, error) {
	channel, err := c.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		PermissionOverwrites: c.privateOverwrites(guildID, memberIDs),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", errors.Wrapf(err, "create private channel %s", name)
	}
	return channel.ID, nil
}

func (c *Channels) RestrictChannel(ctx context.Context, guildID, channelID string, memberIDs ...string) error {
	overwrites := c.privateOverwrites(guildID, memberIDs)
	_, err := c.session.ChannelEdit(channelID, &discordgo.ChannelEdit{
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	return errors.Wrapf(err, "restrict channel %s", channelID)
}

func (c *Channels) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := c.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return errors.Wrapf(err, "delete channel %s", channelID)
}

func (c *Channels) Send(ctx context.Context, channelID, content string) error {
	_, err := c.session.ChannelMessageSend(channelID, truncate(content), discordgo.WithContext(ctx))
	return errors.Wrapf(err, "send to channel %s", channelID)
}

func (c *Channels) privateOverwrites(guildID string, memberIDs []string) []*discordgo.PermissionOverwrite {
	return privateOverwrites(guildID, selfID(c.session), memberIDs)
}

// privateOverwrites denies @everyone (whose role id is the guild id) and allows the bot and members.
func privateOverwrites(guildID, botID string, memberIDs []string) []*discordgo.PermissionOverwrite {
	overwrites := []*discordgo.PermissionOverwrite{{
		ID:   guildID,
		Type: discordgo.PermissionOverwriteTypeRole,
		Deny: discordgo.PermissionViewChannel,
	}}

	seen := make(map[string]bool)
	for _, id := range append([]string{botID}, memberIDs...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    id,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: privateChannelPermissions,
		})
	}
	return overwrites
}
