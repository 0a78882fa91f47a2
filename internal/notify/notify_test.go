package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/emmatheo/polyscop/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordSender struct {
	name   string
	titles []string
	err    error
}

func (r *recordSender) Send(_ context.Context, title, _ string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func (r *recordSender) Name() string { return r.name }

func whale() domain.Trade {
	return domain.Trade{
		Wallet: "0x1234567890abcdef", Market: "Will BTC hit 150k?", Side: domain.SideBuy,
		Outcome: domain.OutcomeYes, Size: 250000, Price: 0.5, Amount: 125000,
		TimestampSec: 1_700_000_000, Category: domain.CategoryCrypto,
	}
}

func TestNotifierFiltersEvents(t *testing.T) {
	s := &recordSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{domain.EventHugeWhale}, discardLogger())
	ctx := context.Background()

	if err := n.Notify(ctx, domain.EventError, "boom", "x"); err != nil {
		t.Fatal(err)
	}
	if err := n.NotifyTrade(ctx, domain.EventHugeWhale, whale()); err != nil {
		t.Fatal(err)
	}
	if len(s.titles) != 1 || s.titles[0] != "$125,000 whale BUY YES" {
		t.Errorf("unexpected titles %v", s.titles)
	}
}

func TestNotifierContinuesAfterFailure(t *testing.T) {
	bad := &recordSender{name: "bad", err: errors.New("down")}
	good := &recordSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

	err := n.Notify(context.Background(), domain.EventError, "t", "m")
	if err == nil || !strings.Contains(err.Error(), "bad: down") {
		t.Errorf("expected combined error, got %v", err)
	}
	if len(good.titles) != 1 {
		t.Error("good sender should still receive the notification")
	}
}

func TestFormatUSD(t *testing.T) {
	cases := map[float64]string{
		0:       "$0",
		999:     "$999",
		1000:    "$1,000",
		125000:  "$125,000",
		1234567: "$1,234,567",
		-5000:   "-$5,000",
	}
	for in, want := range cases {
		if got := FormatUSD(in); got != want {
			t.Errorf("FormatUSD(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestShortWallet(t *testing.T) {
	if got := ShortWallet("0x1234567890abcdef"); got != "0x1234…cdef" {
		t.Errorf("got %q", got)
	}
	if got := ShortWallet("0xabc"); got != "0xabc" {
		t.Errorf("got %q", got)
	}
}

type fakeSession struct {
	embeds []*discordgo.MessageEmbed
}

func (f *fakeSession) ChannelMessageSend(string, string, ...discordgo.RequestOption) (*discordgo.Message, error) {
	return &discordgo.Message{}, nil
}

func (f *fakeSession) ChannelMessageSendEmbed(_ string, e *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.embeds = append(f.embeds, e)
	return &discordgo.Message{}, nil
}

func TestDiscordSendsTradeEmbed(t *testing.T) {
	fs := &fakeSession{}
	d := &DiscordSender{session: fs, channelID: "c"}
	n := NewNotifier([]Sender{d}, nil, discardLogger())

	tr := whale()
	tr.Side = domain.SideSell
	if err := n.NotifyTrade(context.Background(), domain.EventHugeWhale, tr); err != nil {
		t.Fatal(err)
	}
	if len(fs.embeds) != 1 {
		t.Fatalf("expected 1 embed, got %d", len(fs.embeds))
	}
	e := fs.embeds[0]
	if e.Color != colorSell || len(e.Fields) != 6 {
		t.Errorf("unexpected embed %+v", e)
	}
}

func TestTelegramSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	s := NewTelegramSender("TOKEN", "42")
	s.baseURL = srv.URL
	if err := s.Send(context.Background(), "Title", "body"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["chat_id"] != "42" || got["text"] != "*Title*\nbody" {
		t.Errorf("unexpected payload %v", got)
	}
}
