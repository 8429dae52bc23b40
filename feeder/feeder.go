package feeder

import (
	"context"
	"crypto/tls"
	"net/http"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"

	"rmg-pulse/logger"
)

// Candidate is one normalized feed entry, ready for the ingestion gate.
type Candidate struct {
	Title       string
	Link        string
	PublishedAt time.Time
	// PublishedAtMissing marks entries whose feed carried no usable publish
	// date; PublishedAt then holds the fetch time and the scorer treats the
	// timeliness signal as low-confidence.
	PublishedAtMissing bool
	Description        string
	Body               string
	ImageURL           string
}

// FetchSource fetches and parses one feed URL into candidates.
// If limit is greater than 0, it returns only the first limit items.
// Malformed items are skipped individually; an error is returned only when
// the feed itself could not be fetched or parsed.
func FetchSource(ctx context.Context, feedURL string, limit int, timeout time.Duration) ([]Candidate, error) {
	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // some sources serve stale cert chains
		},
	}

	fp := gofeed.NewParser()
	fp.Client = httpClient

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	var items []Candidate
	for _, item := range feed.Items {
		c, ok := normalizeItem(item)
		if !ok {
			logger.WarnWithFields("skipping malformed feed item", logger.Fields{
				"feed_url": feedURL,
				"title":    item.Title,
			})
			continue
		}
		items = append(items, c)
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	return items, nil
}

// normalizeItem maps a raw feed item onto a Candidate. Items without a title
// or link are unusable and reported as not ok.
func normalizeItem(item *gofeed.Item) (Candidate, bool) {
	if item == nil || strings.TrimSpace(item.Title) == "" || strings.TrimSpace(item.Link) == "" {
		return Candidate{}, false
	}

	c := Candidate{
		Title: strings.TrimSpace(item.Title),
		Link:  strings.TrimSpace(item.Link),
	}

	if item.PublishedParsed != nil {
		c.PublishedAt = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		c.PublishedAt = *item.UpdatedParsed
	} else {
		c.PublishedAt = time.Now()
		c.PublishedAtMissing = true
	}

	c.Description = HTMLToText(item.Description)
	c.ImageURL = extractImage(item)

	if item.Content != "" {
		c.Body = extractBodyText(item.Content)
	}

	return c, true
}

// extractImage prefers structured fields and falls back to a best-effort
// scan of the description HTML for an embedded <img>.
func extractImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	return FirstImageFromHTML(item.Description)
}

// FirstImageFromHTML returns the src of the first <img> tag in the given
// HTML fragment, or "".
func FirstImageFromHTML(htmlStr string) string {
	if htmlStr == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}

	var result string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n == nil || result != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "img" {
			for _, a := range n.Attr {
				if strings.ToLower(a.Key) == "src" && a.Val != "" {
					result = a.Val
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return result
}

// HTMLToText strips tags from an HTML fragment and collapses whitespace.
// Plain-text input passes through unchanged apart from whitespace cleanup.
func HTMLToText(htmlStr string) string {
	if htmlStr == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return strings.Join(strings.Fields(htmlStr), " ")
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				b.WriteString(text)
				b.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(b.String()), " ")
}

// extractBodyText runs readability over feed-provided content HTML. Falls
// back to the plain tag-strip when readability cannot make sense of the
// fragment.
func extractBodyText(contentHTML string) string {
	doc, err := html.Parse(strings.NewReader(contentHTML))
	if err != nil {
		return HTMLToText(contentHTML)
	}

	article, err := readability.FromDocument(doc, nil)
	if err != nil || strings.TrimSpace(article.TextContent) == "" {
		return HTMLToText(contentHTML)
	}
	return strings.TrimSpace(article.TextContent)
}
