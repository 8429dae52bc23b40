package feeder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Sample Trade News</title>
    <item>
      <title>Garment factory adds automated cutting line</title>
      <link>https://example.com/cutting-line</link>
      <pubDate>Mon, 02 Jun 2025 09:00:00 GMT</pubDate>
      <description><![CDATA[<p>A Dhaka factory installed <b>automated</b> cutting.</p><img src="https://example.com/cut.jpg"/>]]></description>
    </item>
    <item>
      <title>Undated industry note</title>
      <link>https://example.com/undated</link>
      <description>No publish date on this one.</description>
    </item>
    <item>
      <title></title>
      <link>https://example.com/broken</link>
    </item>
  </channel>
</rss>`

func TestFetchSourceParsesAndNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	items, err := FetchSource(context.Background(), srv.URL, 0, 5*time.Second)
	require.NoError(t, err)
	require.Len(t, items, 2, "the item without a title must be skipped")

	first := items[0]
	assert.Equal(t, "Garment factory adds automated cutting line", first.Title)
	assert.Equal(t, "https://example.com/cutting-line", first.Link)
	assert.False(t, first.PublishedAtMissing)
	assert.Equal(t, "A Dhaka factory installed automated cutting.", first.Description)
	assert.Equal(t, "https://example.com/cut.jpg", first.ImageURL)

	second := items[1]
	assert.True(t, second.PublishedAtMissing)
	assert.WithinDuration(t, time.Now(), second.PublishedAt, time.Minute)
}

func TestFetchSourceHonorsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	items, err := FetchSource(context.Background(), srv.URL, 1, 5*time.Second)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestNormalizeItemFallsBackToUpdatedDate(t *testing.T) {
	updated := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c, ok := normalizeItem(&gofeed.Item{
		Title:         "Updated only",
		Link:          "https://example.com/u",
		UpdatedParsed: &updated,
	})
	require.True(t, ok)
	assert.Equal(t, updated, c.PublishedAt)
	assert.False(t, c.PublishedAtMissing)
}

func TestNormalizeItemRejectsUnusable(t *testing.T) {
	_, ok := normalizeItem(nil)
	assert.False(t, ok)

	_, ok = normalizeItem(&gofeed.Item{Title: "  ", Link: "https://example.com"})
	assert.False(t, ok)

	_, ok = normalizeItem(&gofeed.Item{Title: "t", Link: "   "})
	assert.False(t, ok)
}

func TestExtractImagePrefersStructuredFields(t *testing.T) {
	item := &gofeed.Item{
		Image: &gofeed.Image{URL: "https://example.com/structured.jpg"},
		Enclosures: []*gofeed.Enclosure{
			{Type: "image/jpeg", URL: "https://example.com/enclosure.jpg"},
		},
		Description: `<img src="https://example.com/inline.jpg"/>`,
	}
	assert.Equal(t, "https://example.com/structured.jpg", extractImage(item))

	item.Image = nil
	assert.Equal(t, "https://example.com/enclosure.jpg", extractImage(item))

	item.Enclosures = nil
	assert.Equal(t, "https://example.com/inline.jpg", extractImage(item))
}

func TestFirstImageFromHTML(t *testing.T) {
	assert.Equal(t, "", FirstImageFromHTML(""))
	assert.Equal(t, "", FirstImageFromHTML("<p>no image</p>"))
	assert.Equal(t, "a.jpg", FirstImageFromHTML(`<div><img src="a.jpg"/><img src="b.jpg"/></div>`))
}

func TestHTMLToText(t *testing.T) {
	assert.Equal(t, "", HTMLToText(""))
	assert.Equal(t, "plain words stay", HTMLToText("plain   words \n stay"))
	assert.Equal(t, "Bold and linked text.", HTMLToText(`<p><b>Bold</b> and <a href="#">linked</a> text.</p>`))
}
