package domain

// Notification event names.
const (
	EventHugeWhale = "huge_whale"
	EventError     = "error"
)

// Signal bus channels and streams.
const (
	ChannelWhaleTrades = "polyscop:whale_trades"
	StreamWhaleTrades  = "polyscop:stream:whale_trades"
	StreamHugeWhales   = "polyscop:stream:huge_whales"
)
