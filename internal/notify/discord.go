package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/emmatheo/polyscop/internal/domain"
)

const (
	colorBuy  = 0x2ecc71
	colorSell = 0xe74c3c
)

// channelMessenger is the subset of *discordgo.Session the sender uses.
type channelMessenger interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordSender posts to a channel through a bot session. Trades are sent as
// embeds.
type DiscordSender struct {
	session   channelMessenger
	channelID string
}

// NewDiscordSender creates a bot session for token. No gateway connection is
// opened; messages go over the REST API.
func NewDiscordSender(token, channelID string) (*DiscordSender, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	return &DiscordSender{session: session, channelID: channelID}, nil
}

// Send posts a bold title and message as plain content.
func (d *DiscordSender) Send(ctx context.Context, title, message string) error {
	content := fmt.Sprintf("**%s**\n%s", title, message)
	if _, err := d.session.ChannelMessageSend(d.channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: send message: %w", err)
	}
	return nil
}

// SendTrade posts a trade embed.
func (d *DiscordSender) SendTrade(ctx context.Context, title string, t domain.Trade) error {
	if _, err := d.session.ChannelMessageSendEmbed(d.channelID, buildTradeEmbed(title, t), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: send embed: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}

func buildTradeEmbed(title string, t domain.Trade) *discordgo.MessageEmbed {
	color := colorBuy
	if t.Side == domain.SideSell {
		color = colorSell
	}
	outcome := string(t.Outcome)
	if t.OutcomeInferred {
		outcome += " (inferred)"
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		URL:         "https://polymarket.com/profile/" + t.Wallet,
		Description: fmt.Sprintf("**%s**", t.Market),
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Wallet", Value: ShortWallet(t.Wallet), Inline: true},
			{Name: "Side", Value: string(t.Side), Inline: true},
			{Name: "Outcome", Value: outcome, Inline: true},
			{Name: "Notional", Value: FormatUSD(t.Amount), Inline: true},
			{Name: "Fill", Value: fmt.Sprintf("%.2f @ %.3f", t.Size, t.Price), Inline: true},
			{Name: "Category", Value: string(t.Category), Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "polyscop"},
		Timestamp: t.Time().Format(time.RFC3339),
	}
}
