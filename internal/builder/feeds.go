package builder

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const maxFeedItems = 20

type feedItem struct {
	Title       string
	Summary     string
	Link        string
	GUID        string
	PublishedAt time.Time
}

// selectFeedItems keeps the most recently dated items, newest first.
// Undated items never appear in the feed.
func selectFeedItems(items []feedItem) []feedItem {
	dated := make([]feedItem, 0, len(items))
	for _, item := range items {
		if item.PublishedAt.IsZero() {
			continue
		}
		dated = append(dated, item)
	}
	sort.SliceStable(dated, func(i, j int) bool {
		left, right := dated[i].PublishedAt, dated[j].PublishedAt
		if left.Equal(right) {
			return dated[i].GUID < dated[j].GUID
		}
		return left.After(right)
	})
	if len(dated) > maxFeedItems {
		dated = dated[:maxFeedItems]
	}
	return dated
}

// buildRSSFeed renders the rss.xml document for the selected items.
func buildRSSFeed(title, description, baseURL string, items []feedItem, generatedAt time.Time) string {
	base := baseURLWithFallback(baseURL)
	if strings.TrimSpace(title) == "" {
		title = base
	}

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(`<rss version="2.0">` + "\n")
	builder.WriteString("  <channel>\n")
	builder.WriteString(fmt.Sprintf("    <title>%s</title>\n", escapeXML(title)))
	builder.WriteString(fmt.Sprintf("    <link>%s</link>\n", escapeXML(base)))
	builder.WriteString(fmt.Sprintf("    <description>%s</description>\n", escapeXML(description)))
	builder.WriteString(fmt.Sprintf("    <lastBuildDate>%s</lastBuildDate>\n", generatedAt.UTC().Format(time.RFC1123Z)))
	for _, item := range items {
		builder.WriteString("    <item>\n")
		builder.WriteString(fmt.Sprintf("      <title>%s</title>\n", escapeXML(item.Title)))
		builder.WriteString(fmt.Sprintf("      <link>%s</link>\n", escapeXML(item.Link)))
		builder.WriteString(fmt.Sprintf("      <guid>%s</guid>\n", escapeXML(item.GUID)))
		builder.WriteString(fmt.Sprintf("      <pubDate>%s</pubDate>\n", item.PublishedAt.UTC().Format(time.RFC1123Z)))
		if item.Summary != "" {
			builder.WriteString(fmt.Sprintf("      <description>%s</description>\n", escapeXML(item.Summary)))
		}
		builder.WriteString("    </item>\n")
	}
	builder.WriteString("  </channel>\n")
	builder.WriteString(`</rss>` + "\n")
	return builder.String()
}
