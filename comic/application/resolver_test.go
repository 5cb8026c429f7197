package application

import (
	"errors"
	"testing"
)

func TestFeedResolver_Resolve(t *testing.T) {
	tests := []struct {
		name        string
		feed        string
		wantURL     string
		wantPubDate string
	}{
		{
			name: "enclosure takes precedence over embedded image",
			feed: `<?xml version="1.0"?>
<rss version="2.0"><channel><item>
  <title>Fingerpori</title>
  <pubDate>Wed, 15 Oct 2025 04:00:00 +0300</pubDate>
  <description><![CDATA[<p><img src="http://x/embedded.jpg"></p>]]></description>
  <enclosure url="http://x/enclosure.png" type="image/png" length="1"/>
</item></channel></rss>`,
			wantURL:     "http://x/enclosure.png",
			wantPubDate: "Wed, 15 Oct 2025 04:00:00 +0300",
		},
		{
			name: "falls back to img tag in description",
			feed: `<?xml version="1.0"?>
<rss version="2.0"><channel><item>
  <title>Fingerpori</title>
  <pubDate>Wed, 15 Oct 2025 04:00:00 +0300</pubDate>
  <description><![CDATA[<p>Today's strip</p><img alt="strip" src="https://cdn.example.com/2025/10/15/strip.jpg" />]]></description>
</item></channel></rss>`,
			wantURL:     "https://cdn.example.com/2025/10/15/strip.jpg",
			wantPubDate: "Wed, 15 Oct 2025 04:00:00 +0300",
		},
		{
			name: "escaped markup in description",
			feed: `<?xml version="1.0"?>
<rss version="2.0"><channel><item>
  <description>&lt;img src='http://x/escaped.gif'&gt;</description>
</item></channel></rss>`,
			wantURL: "http://x/escaped.gif",
		},
		{
			name: "extension match is case-insensitive",
			feed: `<?xml version="1.0"?>
<rss version="2.0"><channel><item>
  <description><![CDATA[<IMG SRC="http://x/UPPER.JPEG">]]></description>
</item></channel></rss>`,
			wantURL: "http://x/UPPER.JPEG",
		},
		{
			name: "first image reference wins",
			feed: `<?xml version="1.0"?>
<rss version="2.0"><channel><item>
  <description><![CDATA[<img src="http://x/first.png"><img src="http://x/second.png">]]></description>
</item></channel></rss>`,
			wantURL: "http://x/first.png",
		},
		{
			name: "content encoded",
			feed: `<?xml version="1.0"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/"><channel><item>
  <description>Plain text</description>
  <content:encoded><![CDATA[<figure><img src="http://x/content.png"></figure>]]></content:encoded>
</item></channel></rss>`,
			wantURL: "http://x/content.png",
		},
		{
			name: "media content extension",
			feed: `<?xml version="1.0"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/"><channel><item>
  <title>Fingerpori</title>
  <media:content url="http://x/media.jpg" medium="image"/>
</item></channel></rss>`,
			wantURL: "http://x/media.jpg",
		},
		{
			name: "only the first item is considered",
			feed: `<?xml version="1.0"?>
<rss version="2.0"><channel>
<item><pubDate>Thu, 16 Oct 2025 04:00:00 +0300</pubDate><enclosure url="http://x/newest.png" type="image/png" length="1"/></item>
<item><pubDate>Wed, 15 Oct 2025 04:00:00 +0300</pubDate><enclosure url="http://x/older.png" type="image/png" length="1"/></item>
</channel></rss>`,
			wantURL:     "http://x/newest.png",
			wantPubDate: "Thu, 16 Oct 2025 04:00:00 +0300",
		},
		{
			name: "publication date is passed through unparsed",
			feed: `<?xml version="1.0"?>
<rss version="2.0"><channel><item>
  <pubDate>sometime last week</pubDate>
  <enclosure url="http://x/a.png" type="image/png" length="1"/>
</item></channel></rss>`,
			wantURL:     "http://x/a.png",
			wantPubDate: "sometime last week",
		},
		{
			name: "atom enclosure link",
			feed: `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Comics</title>
  <entry>
    <title>Today</title>
    <id>urn:comic:1</id>
    <published>2025-10-16T04:00:00+03:00</published>
    <link rel="enclosure" type="image/png" href="http://x/atom.png"/>
  </entry>
</feed>`,
			wantURL:     "http://x/atom.png",
			wantPubDate: "2025-10-16T04:00:00+03:00",
		},
		{
			name:    "latin-1 declared encoding",
			feed:    "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<rss version=\"2.0\"><channel><item><title>P\xe4iv\xe4n strippi</title><enclosure url=\"http://x/latin.png\" type=\"image/png\" length=\"1\"/></item></channel></rss>",
			wantURL: "http://x/latin.png",
		},
	}

	resolver := NewFeedResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := resolver.Resolve([]byte(tt.feed))
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if entry.ImageURL != tt.wantURL {
				t.Errorf("ImageURL = %q, want %q", entry.ImageURL, tt.wantURL)
			}
			if entry.PublicationDate != tt.wantPubDate {
				t.Errorf("PublicationDate = %q, want %q", entry.PublicationDate, tt.wantPubDate)
			}
		})
	}
}

func TestFeedResolver_Errors(t *testing.T) {
	tests := []struct {
		name    string
		feed    string
		wantErr error
	}{
		{
			name:    "not a feed",
			feed:    "<<< definitely not xml",
			wantErr: ErrParse,
		},
		{
			name:    "empty input",
			feed:    "",
			wantErr: ErrParse,
		},
		{
			name:    "no items",
			feed:    `<?xml version="1.0"?><rss version="2.0"><channel><title>Nothing</title></channel></rss>`,
			wantErr: ErrEmptyFeed,
		},
		{
			name:    "no image in first item",
			feed:    `<?xml version="1.0"?><rss version="2.0"><channel><item><description><![CDATA[<a href="http://x/page.html">read</a>]]></description></item><item><enclosure url="http://x/older.png" type="image/png" length="1"/></item></channel></rss>`,
			wantErr: ErrNoImageFound,
		},
		{
			name:    "bare ampersand",
			feed:    `<?xml version="1.0"?><rss version="2.0"><channel><item><title>a & b</title><enclosure url="http://x/a.png" type="image/png" length="1"/></item></channel></rss>`,
			wantErr: ErrParse,
		},
		{
			name:    "mismatched closing tag",
			feed:    `<?xml version="1.0"?><rss version="2.0"><channel><item><title>x</titel><enclosure url="http://x/a.png" type="image/png" length="1"/></item></channel></rss>`,
			wantErr: ErrParse,
		},
		{
			name:    "unclosed root",
			feed:    `<?xml version="1.0"?><rss version="2.0"><channel><item><enclosure url="http://x/a.png"/></item>`,
			wantErr: ErrParse,
		},
		{
			name:    "empty enclosure url does not fall back to markup",
			feed:    `<?xml version="1.0"?><rss version="2.0"><channel><item><description><![CDATA[<img src="http://x/b.png">]]></description><enclosure url="" type="image/png" length="1"/></item></channel></rss>`,
			wantErr: ErrNoImageFound,
		},
		{
			name:    "non-image file reference",
			feed:    `<?xml version="1.0"?><rss version="2.0"><channel><item><description><![CDATA[<img src="http://x/strip.webp">]]></description></item></channel></rss>`,
			wantErr: ErrNoImageFound,
		},
	}

	resolver := NewFeedResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.Resolve([]byte(tt.feed))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Resolve() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
