package application

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"golang.org/x/net/html/charset"
)

var (
	// ErrParse means the document is not a well-formed feed.
	ErrParse = errors.New("feed is not well-formed")
	// ErrEmptyFeed means the feed parsed but has no items.
	ErrEmptyFeed = errors.New("feed has no items")
	// ErrNoImageFound means the newest item references no image.
	ErrNoImageFound = errors.New("no image found in latest feed item")
)

var imageRefRegex = regexp.MustCompile(`(?i)(?:src|url)\s*=\s*["']([^"']+\.(?:gif|png|jpe?g))["']`)

// FeedEntry is what the pipeline needs from the newest feed item.
type FeedEntry struct {
	ImageURL string
	// PublicationDate is the raw published value of the item, not parsed.
	PublicationDate string
}

// FeedResolver extracts the newest comic from a feed document.
type FeedResolver struct {
	parser *gofeed.Parser
}

func NewFeedResolver() *FeedResolver {
	return &FeedResolver{parser: gofeed.NewParser()}
}

// Resolve parses feed and returns the image URL and publication date of its first item.
// Feeds are assumed to list the newest item first; items are not sorted by date.
func (r *FeedResolver) Resolve(feed []byte) (FeedEntry, error) {
	if err := checkWellFormed(feed); err != nil {
		return FeedEntry{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	parsed, err := r.parser.Parse(bytes.NewReader(feed))
	if err != nil {
		return FeedEntry{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	if len(parsed.Items) == 0 {
		return FeedEntry{}, ErrEmptyFeed
	}

	item := parsed.Items[0]
	imageURL, ok := enclosureURL(item)
	if !ok {
		imageURL = findImageReference(item)
	}
	if imageURL == "" {
		return FeedEntry{}, ErrNoImageFound
	}

	return FeedEntry{
		ImageURL:        imageURL,
		PublicationDate: item.Published,
	}, nil
}

// checkWellFormed rejects XML that gofeed would otherwise parse leniently, such as bare
// ampersands or mismatched tags. JSON feeds are left to gofeed.
func checkWellFormed(feed []byte) error {
	trimmed := bytes.TrimSpace(feed)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return nil
	}

	d := xml.NewDecoder(bytes.NewReader(feed))
	d.Strict = true
	d.CharsetReader = charset.NewReaderLabel

	hasRoot := false
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if _, ok := tok.(xml.StartElement); ok {
			hasRoot = true
		}
	}
	if !hasRoot {
		return errors.New("no root element")
	}
	return nil
}

// enclosureURL returns the URL of the item's first enclosure. An enclosure is decisive even when
// its URL is empty, so ok is false only when the item has no enclosure at all.
func enclosureURL(item *gofeed.Item) (u string, ok bool) {
	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		return strings.TrimSpace(enc.URL), true
	}
	return "", false
}

// findImageReference searches the item's markup for the first quoted reference to an image file.
func findImageReference(item *gofeed.Item) string {
	matches := imageRefRegex.FindStringSubmatch(serializeItem(item))
	if len(matches) < 2 {
		return ""
	}
	return strings.TrimSpace(matches[1])
}

// serializeItem renders the parts of an item that may carry image markup, in document-ish order.
func serializeItem(item *gofeed.Item) string {
	var sb strings.Builder
	sb.WriteString(item.Description)
	sb.WriteString("\n")
	sb.WriteString(item.Content)
	sb.WriteString("\n")

	// Extension elements such as <media:content url="..."/>.
	for _, prefix := range sortedKeys(item.Extensions) {
		elements := item.Extensions[prefix]
		for _, name := range sortedKeys(elements) {
			for _, e := range elements[name] {
				writeExtension(&sb, prefix, e)
			}
		}
	}

	if item.Image != nil && item.Image.URL != "" {
		fmt.Fprintf(&sb, "<image url=%q/>\n", item.Image.URL)
	}

	return sb.String()
}

func writeExtension(sb *strings.Builder, prefix string, e ext.Extension) {
	fmt.Fprintf(sb, "<%s:%s", prefix, e.Name)
	for _, k := range sortedKeys(e.Attrs) {
		fmt.Fprintf(sb, " %s=%q", k, e.Attrs[k])
	}
	sb.WriteString(">")
	sb.WriteString(e.Value)
	for _, name := range sortedKeys(e.Children) {
		for _, child := range e.Children[name] {
			writeExtension(sb, prefix, child)
		}
	}
	fmt.Fprintf(sb, "</%s:%s>\n", prefix, e.Name)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
