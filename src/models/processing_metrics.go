package models

// MStreamStats is the JSON body of /api/metrics.
type MStreamStats struct {
	FeedName         string         `json:"feed"`
	FeedState        string         `json:"feed_state"`
	TicksIngested    int64          `json:"ticks_ingested"`
	TicksDropped     int64          `json:"ticks_dropped"`
	SnapshotsSent    int64          `json:"snapshots_published"`
	HandledErrors    int64          `json:"handled_errors"`
	Viewers          int            `json:"viewers"`
	SubscribersByKey map[string]int `json:"subscribers"`
}
