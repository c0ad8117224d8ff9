package domain

// Book is the root of a study hierarchy. Its counters aggregate every Topic beneath it.
type Book struct {
	Syncable
	UserID          string `json:"user_id"`
	Title           string `json:"title"`
	Color           string `json:"color"`
	Description     string `json:"description"`
	TotalTopics     int    `json:"total_topics"`
	CompletedTopics int    `json:"completed_topics"`
	IsFavourite     bool   `json:"is_favourite"`
}

// OwnerID implements Owned.
func (b *Book) OwnerID() string { return b.UserID }

// Counters returns the topic counters.
func (b *Book) Counters() Counters {
	return Counters{Total: b.TotalTopics, Completed: b.CompletedTopics}
}

// SetCounters stores c as the topic counters.
func (b *Book) SetCounters(c Counters) {
	b.TotalTopics, b.CompletedTopics = c.Total, c.Completed
}

// Section groups Chapters within a Book.
type Section struct {
	Syncable
	UserID            string `json:"user_id"`
	BookID            string `json:"book_id"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	TotalChapters     int    `json:"total_chapters"`
	CompletedChapters int    `json:"completed_chapters"`
}

// OwnerID implements Owned.
func (s *Section) OwnerID() string { return s.UserID }

// Counters returns the chapter counters.
func (s *Section) Counters() Counters {
	return Counters{Total: s.TotalChapters, Completed: s.CompletedChapters}
}

// SetCounters stores c as the chapter counters.
func (s *Section) SetCounters(c Counters) {
	s.TotalChapters, s.CompletedChapters = c.Total, c.Completed
}

// Chapter groups Topics. BookID is copied from the Section so cascades skip a lookup.
type Chapter struct {
	Syncable
	UserID          string `json:"user_id"`
	BookID          string `json:"book_id"`
	SectionID       string `json:"section_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	TotalTopics     int    `json:"total_topics"`
	CompletedTopics int    `json:"completed_topics"`
}

// OwnerID implements Owned.
func (c *Chapter) OwnerID() string { return c.UserID }

// Counters returns the topic counters.
func (c *Chapter) Counters() Counters {
	return Counters{Total: c.TotalTopics, Completed: c.CompletedTopics}
}

// SetCounters stores v as the topic counters.
func (c *Chapter) SetCounters(v Counters) {
	c.TotalTopics, c.CompletedTopics = v.Total, v.Completed
}

// IsComplete reports whether the chapter has topics and all are done.
func (c *Chapter) IsComplete() bool {
	return c.Counters().IsComplete()
}
