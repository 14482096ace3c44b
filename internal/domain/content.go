package domain

import "time"

// ContentItem is one ingested channel post.
type ContentItem struct {
	ID              int64
	SourceURL       string
	Title           string
	Content         string
	PublicationTime time.Time
	ChannelID       int64
	Language        string
	IsAnalyzed      bool
}

// Text returns the title and body joined the way the analyzers consume them.
func (c ContentItem) Text() string {
	if c.Title == "" {
		return c.Content
	}
	if c.Content == "" {
		return c.Title
	}
	return c.Title + "\n" + c.Content
}

// Post is a raw message delivered by a source before it becomes a ContentItem.
type Post struct {
	SourceURL   string
	Title       string
	Text        string
	PublishedAt time.Time
	ChannelID   int64
	Language    string
}

// IngestStatus enumerates what happened to an incoming post.
type IngestStatus string

const (
	IngestStored    IngestStatus = "stored"
	IngestDuplicate IngestStatus = "duplicate"
	IngestRejected  IngestStatus = "rejected"
	IngestFailed    IngestStatus = "failed"
)

// IngestResult reports the outcome of a single ingestion attempt.
type IngestResult struct {
	Status IngestStatus
	ID     int64
	URL    string
}
