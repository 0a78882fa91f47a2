// Package notify fans whale alerts and operational errors out to chat
// channels (Discord, Telegram). Events are filtered by type so operators only
// receive the alerts they opted into.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/emmatheo/polyscop/internal/domain"
)

// Sender is a notification channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// TradeSender is implemented by senders that render trades natively, such as
// Discord embeds. Other senders receive a formatted text message.
type TradeSender interface {
	SendTrade(ctx context.Context, title string, t domain.Trade) error
}

// Notifier dispatches notifications to one or more Senders.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier for the given senders. Only events listed in
// events are forwarded; an empty list allows everything.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && len(n.senders) > 0
}

func (n *Notifier) allows(event string) bool {
	return len(n.events) == 0 || n.events[event]
}

// Notify sends a text notification if event is allowed.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if !n.Enabled() {
		return nil
	}
	if !n.allows(event) {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return nil
	}
	return n.dispatch(ctx, title, func(s Sender) error {
		return s.Send(ctx, title, message)
	})
}

// NotifyTrade sends a trade alert if event is allowed.
func (n *Notifier) NotifyTrade(ctx context.Context, event string, t domain.Trade) error {
	if !n.Enabled() {
		return nil
	}
	if !n.allows(event) {
		return nil
	}
	title := TradeTitle(t)
	return n.dispatch(ctx, title, func(s Sender) error {
		if ts, ok := s.(TradeSender); ok {
			return ts.SendTrade(ctx, title, t)
		}
		return s.Send(ctx, title, TradeMessage(t))
	})
}

// dispatch delivers to every sender; one failure does not stop the rest.
func (n *Notifier) dispatch(ctx context.Context, title string, send func(Sender) error) error {
	var errs []string
	for _, s := range n.senders {
		if err := send(s); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// TradeTitle is the one-line headline of a trade alert.
func TradeTitle(t domain.Trade) string {
	return fmt.Sprintf("%s whale %s %s", FormatUSD(t.Amount), t.Side, t.Outcome)
}

// TradeMessage is the plain-text body of a trade alert.
func TradeMessage(t domain.Trade) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", t.Market)
	fmt.Fprintf(&b, "Wallet: %s\n", ShortWallet(t.Wallet))
	fmt.Fprintf(&b, "Size: %.2f @ %.3f\n", t.Size, t.Price)
	fmt.Fprintf(&b, "Category: %s", t.Category)
	if t.OutcomeInferred {
		b.WriteString("\nOutcome inferred from side")
	}
	return b.String()
}

// ShortWallet abbreviates a 0x address as 0x1234…abcd.
func ShortWallet(w string) string {
	if len(w) <= 12 {
		return w
	}
	return w[:6] + "…" + w[len(w)-4:]
}

// FormatUSD renders a whole-dollar amount with thousands separators.
func FormatUSD(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%.0f", v)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
