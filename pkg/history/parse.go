package history

import (
	"net/url"
	"strings"
)

const (
	watchMarker   = "/watch?v="
	watchedPrefix = "Watched "
	viewedPrefix  = "Viewed "
)

// IsVideo reports whether the record is a watched video. Posts and other
// activity carry different URL shapes (for example "/post/").
func IsVideo(rec Record) bool {
	return strings.Contains(rec.TitleURL, watchMarker)
}

// CleanTitle strips the "Watched " action prefix. A "Viewed " prefix belongs
// to non-video activity and is rejected with ErrInvariantViolation; titles
// with neither prefix are returned unchanged.
func CleanTitle(title string) (string, error) {
	if rest, ok := strings.CutPrefix(title, watchedPrefix); ok {
		return rest, nil
	}
	if strings.HasPrefix(title, viewedPrefix) {
		return "", &ParseError{
			Kind:   ErrInvariantViolation,
			Field:  "title",
			Value:  title,
			Detail: "unexpected \"Viewed\" prefix on video record",
		}
	}
	return title, nil
}

// VideoID extracts the single "v" query parameter from a watch URL.
func VideoID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", malformedURL("titleUrl", rawURL, err.Error())
	}
	if !strings.Contains(u.Path, "/watch") {
		return "", malformedURL("titleUrl", rawURL, "not a watch url")
	}

	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return "", malformedURL("titleUrl", rawURL, err.Error())
	}

	var ids []string
	for _, v := range query["v"] {
		if v != "" {
			ids = append(ids, v)
		}
	}
	if len(ids) != 1 {
		return "", malformedURL("titleUrl", rawURL, "expected exactly one video id")
	}
	return ids[0], nil
}

// ChannelID extracts the path segment following "channel" in a channel URL.
func ChannelID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", malformedURL("subtitles.url", rawURL, err.Error())
	}
	if !strings.Contains(u.Path, "/channel/") {
		return "", malformedURL("subtitles.url", rawURL, "not a channel url")
	}

	parts := strings.Split(u.Path, "/")
	for i, part := range parts {
		if part != "channel" {
			continue
		}
		if i+1 >= len(parts) || parts[i+1] == "" {
			return "", malformedURL("subtitles.url", rawURL, "channel id not found")
		}
		return parts[i+1], nil
	}
	return "", malformedURL("subtitles.url", rawURL, "invalid channel url structure")
}

// Parse turns a record into a Fact. ok is false with a nil error when the
// record is not a video and should be skipped. Any error is a *ParseError.
func Parse(rec Record) (fact Fact, ok bool, err error) {
	if !IsVideo(rec) {
		return Fact{}, false, nil
	}

	if rec.TitleURL == "" {
		return Fact{}, false, missingField("titleUrl")
	}
	videoID, err := VideoID(rec.TitleURL)
	if err != nil {
		return Fact{}, false, err
	}

	if rec.Title == "" {
		return Fact{}, false, missingField("title")
	}
	title, err := CleanTitle(rec.Title)
	if err != nil {
		return Fact{}, false, err
	}

	channelID, channelName := SentinelChannelID, SentinelChannelName
	if len(rec.Subtitles) > 0 {
		sub := rec.Subtitles[0]
		if sub.URL != "" && sub.Name != "" {
			channelID, err = ChannelID(sub.URL)
			if err != nil {
				return Fact{}, false, err
			}
			channelName = sub.Name
		}
	}

	if rec.Time == "" {
		return Fact{}, false, missingField("time")
	}

	return Fact{
		VideoID:     videoID,
		Title:       title,
		ChannelID:   channelID,
		ChannelName: channelName,
		Timestamp:   rec.Time,
	}, true, nil
}
