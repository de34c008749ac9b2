// Package history models YouTube watch-history export records and turns them
// into normalized watch facts.
package history

// SentinelChannelID and SentinelChannelName identify the placeholder channel
// used for videos whose channel was not present in the export
// (deleted or private at export time).
const (
	SentinelChannelID   = "NO_CHANNEL"
	SentinelChannelName = "Deleted/Private Videos"
)

// Record is one activity entry from a watch-history export. Every field is
// optional in the export; an empty value is treated as absent.
type Record struct {
	Header    string     `json:"header,omitempty"`
	Title     string     `json:"title,omitempty"`
	TitleURL  string     `json:"titleUrl,omitempty"`
	Time      string     `json:"time,omitempty"`
	Subtitles []Subtitle `json:"subtitles,omitempty"`
	Products  []string   `json:"products,omitempty"`
}

// Subtitle carries the channel metadata attached to a record. Only the first
// entry of Record.Subtitles is consulted.
type Subtitle struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Fact is a parsed watch event.
type Fact struct {
	VideoID     string
	Title       string
	ChannelID   string
	ChannelName string
	// Timestamp is the raw ISO-8601 UTC string from the export.
	Timestamp string
}
