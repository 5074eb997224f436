package models

// FeedState is the connection state of a feed source.
type FeedState int

const (
	FeedDisconnected FeedState = iota
	FeedConnecting
	FeedAuthPending
	FeedSubscribed
)

func (s FeedState) String() string {
	switch s {
	case FeedDisconnected:
		return "disconnected"
	case FeedConnecting:
		return "connecting"
	case FeedAuthPending:
		return "auth_pending"
	case FeedSubscribed:
		return "subscribed"
	default:
		return "unknown"
	}
}
