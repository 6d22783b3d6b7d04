package video_test

import (
	"testing"

	"github.com/treenitaastu-blip/TreeniTaastu-DEV-sub000/internal/video"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_YouTubeVariants(t *testing.T) {
	// All URL shapes of the same underlying video must resolve to one embed id.
	variants := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtube.com/watch?v=dQw4w9WgXcQ&t=42s",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ?si=abc",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ",
		"https://www.youtube.com/live/dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ",
		"https://m.youtube.com/watch?v=dQw4w9WgXcQ",
	}

	for _, raw := range variants {
		embed := video.Resolve(raw)
		require.True(t, embed.Embeddable, "expected %q to be embeddable", raw)
		assert.Equal(t, video.ProviderYouTube, embed.Provider)
		assert.Equal(t, "dQw4w9WgXcQ", embed.VideoID)
		assert.Equal(t, "https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ", embed.URL)
	}
}

func TestResolve_Vimeo(t *testing.T) {
	for _, raw := range []string{
		"https://vimeo.com/123456789",
		"https://www.vimeo.com/123456789",
		"https://player.vimeo.com/video/123456789",
	} {
		embed := video.Resolve(raw)
		require.True(t, embed.Embeddable, "expected %q to be embeddable", raw)
		assert.Equal(t, video.ProviderVimeo, embed.Provider)
		assert.Equal(t, "123456789", embed.VideoID)
		assert.Equal(t, "https://player.vimeo.com/video/123456789?dnt=1", embed.URL)
	}
}

func TestResolve_Passthrough(t *testing.T) {
	for _, raw := range []string{
		"https://example.com/some/exercise.mp4",
		"https://storage.example.com/bucket/demo?sig=abc",
		"not a url at all",
		"",
	} {
		embed := video.Resolve(raw)
		assert.False(t, embed.Embeddable, "expected %q not to be embeddable", raw)
		assert.Equal(t, raw, embed.URL, "passthrough must leave the URL unchanged")
		assert.Empty(t, embed.VideoID)
	}
}

func TestResolve_MalformedYouTube(t *testing.T) {
	// Watch URL without a v parameter, and an id with URL metacharacters.
	for _, raw := range []string{
		"https://www.youtube.com/watch",
		"https://www.youtube.com/watch?list=PL123",
		"https://youtu.be/bad%20id",
	} {
		embed := video.Resolve(raw)
		assert.False(t, embed.Embeddable, "expected %q not to be embeddable", raw)
		assert.Equal(t, raw, embed.URL)
	}
}
