package notify

import (
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"share2care/internal/ports/output"
)

const (
	embedColorEvent   = 0x2ECC71
	embedColorAccount = 0x5865F2
)

// buildNoticeEmbed renders a notice as a webhook embed. The addressee is
// left out: the channel is shared.
func buildNoticeEmbed(n output.Notice, at time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       n.Title,
		Description: n.Body,
		Color:       embedColorAccount,
		Timestamp:   at.UTC().Format(time.RFC3339),
	}
	if n.Kind == output.NoticeEventApproved {
		embed.Color = embedColorEvent
	}

	var fields []*discordgo.MessageEmbedField
	if n.EventID != 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Event", Value: "#" + strconv.FormatInt(n.EventID, 10), Inline: true})
	}
	embed.Fields = fields
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Share2care"}
	return embed
}
