// Package video rewrites exercise video URLs into privacy-respecting
// embeddable forms. Unrecognized URLs pass through unchanged so the caller can
// fall back to a plain link.
package video

import (
	"fmt"
	"net/url"
	"strings"
)

// Provider identifies the video host a URL was recognized as.
type Provider string

const (
	ProviderYouTube Provider = "youtube"
	ProviderVimeo   Provider = "vimeo"
	ProviderNone    Provider = ""
)

// Embed is the result of resolving a raw video URL.
type Embed struct {
	URL        string   `json:"url"`
	Embeddable bool     `json:"embeddable"`
	Provider   Provider `json:"provider,omitempty"`
	VideoID    string   `json:"videoId,omitempty"`
}

// Resolve recognizes YouTube (watch?v=, youtu.be/, /shorts/, /live/, /embed/)
// and Vimeo URLs and rewrites them to embeddable players. YouTube goes through
// the youtube-nocookie host. Anything else is returned unchanged with
// Embeddable false.
func Resolve(raw string) Embed {
	passthrough := Embed{URL: raw, Embeddable: false, Provider: ProviderNone}
	if strings.TrimSpace(raw) == "" {
		return passthrough
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return passthrough
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "youtube-nocookie.com":
		if id := youtubeIDFromPath(u); id != "" {
			return youtubeEmbed(raw, id)
		}
	case "youtu.be":
		if id := firstPathSegment(u.Path); id != "" {
			return youtubeEmbed(raw, id)
		}
	case "vimeo.com", "player.vimeo.com":
		if id := vimeoIDFromPath(u.Path); id != "" {
			return Embed{
				URL:        fmt.Sprintf("https://player.vimeo.com/video/%s?dnt=1", id),
				Embeddable: true,
				Provider:   ProviderVimeo,
				VideoID:    id,
			}
		}
	}

	return passthrough
}

func youtubeEmbed(raw, id string) Embed {
	if !validYouTubeID(id) {
		return Embed{URL: raw, Embeddable: false, Provider: ProviderNone}
	}
	return Embed{
		URL:        fmt.Sprintf("https://www.youtube-nocookie.com/embed/%s", id),
		Embeddable: true,
		Provider:   ProviderYouTube,
		VideoID:    id,
	}
}

// youtubeIDFromPath handles the URL shapes youtube.com serves the same video
// under: /watch?v=ID, /shorts/ID, /live/ID and /embed/ID.
func youtubeIDFromPath(u *url.URL) string {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) == 0 {
		return ""
	}
	switch segments[0] {
	case "watch":
		return u.Query().Get("v")
	case "shorts", "live", "embed":
		if len(segments) >= 2 {
			return segments[1]
		}
	}
	return ""
}

func firstPathSegment(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return ""
	}
	return strings.SplitN(trimmed, "/", 2)[0]
}

func vimeoIDFromPath(path string) string {
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		if segment != "" && isDigits(segment) {
			return segment
		}
	}
	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// validYouTubeID keeps obviously malformed ids (empty, or containing URL
// metacharacters) out of the embed URL.
func validYouTubeID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
