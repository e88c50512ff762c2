package feed

import (
	"testing"
	"time"
)

func TestParseRSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <language>ja</language>
    <item>
      <title>Test Item 1</title>
      <link>https://example.com/item1</link>
      <description>Test Item 1 Description</description>
      <guid>item-1</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <enclosure url="https://example.com/image1.jpg" type="image/jpeg" length="1024"/>
    </item>
    <item>
      <title>Test Item 2</title>
      <link>https://example.com/item2</link>
      <description>Test Item 2 Description</description>
      <pubDate>Mon, 03 Jul 2023 11:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	metadata, items, err := parser.Run([]byte(rssData))

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if metadata.Title != "Test Feed" {
		t.Errorf("Expected title 'Test Feed', got: %s", metadata.Title)
	}
	if metadata.Language != "ja" {
		t.Errorf("Expected language 'ja', got: %s", metadata.Language)
	}

	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}

	if items[0].GUID != "item-1" {
		t.Errorf("Expected GUID 'item-1', got: %s", items[0].GUID)
	}
	if items[0].ImageURL != "https://example.com/image1.jpg" {
		t.Errorf("Expected enclosure image, got: %s", items[0].ImageURL)
	}

	expected := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)
	if !items[0].PublishedAt.Equal(expected) {
		t.Errorf("Expected published at %v, got: %v", expected, items[0].PublishedAt)
	}

	// GUID falls back to link when missing
	if items[1].GUID != "https://example.com/item2" {
		t.Errorf("Expected GUID fallback to link, got: %s", items[1].GUID)
	}
}

func TestParseAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Feed</title>
  <link href="https://example.com"/>
  <updated>2023-07-03T12:00:00Z</updated>
  <entry>
    <title>Atom Entry</title>
    <link href="https://example.com/entry1"/>
    <id>entry-1</id>
    <updated>2023-07-03T11:00:00Z</updated>
    <content type="html">&lt;p&gt;Entry content&lt;/p&gt;&lt;img src="https://example.com/inline.png"/&gt;</content>
  </entry>
</feed>`

	parser := NewParser()
	metadata, items, err := parser.Run([]byte(atomData))

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if metadata.Title != "Atom Feed" {
		t.Errorf("Expected title 'Atom Feed', got: %s", metadata.Title)
	}

	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0].Content == "" {
		t.Error("Expected content to be populated from entry content")
	}
	if items[0].ImageURL != "https://example.com/inline.png" {
		t.Errorf("Expected inline image extraction, got: %s", items[0].ImageURL)
	}
}

func TestParseInvalidXML(t *testing.T) {
	parser := NewParser()
	_, _, err := parser.Run([]byte("this is not a feed"))
	if err == nil {
		t.Error("Expected parse error for invalid XML")
	}
}

func TestParseSkipsItemsWithoutLink(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Feed</title>
    <item>
      <title>No link here</title>
    </item>
    <item>
      <title>Linked</title>
      <link>https://example.com/ok</link>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	_, items, err := parser.Run([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0].Link != "https://example.com/ok" {
		t.Errorf("Unexpected item link: %s", items[0].Link)
	}
}
