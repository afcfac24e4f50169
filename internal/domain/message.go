package domain

// Message is a raw channel message as seen by the link extractor.
type Message struct {
	User        string       `json:"user"`
	BotID       string       `json:"bot_id,omitempty"`
	Text        string       `json:"text"`
	Timestamp   string       `json:"ts"`
	SubType     string       `json:"subtype,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Reactions   []Reaction   `json:"reactions,omitempty"`
}

// Attachment carries the URLs the chat service unfurled for a message.
type Attachment struct {
	OriginalURL  string `json:"original_url,omitempty"`
	AppUnfurlURL string `json:"app_unfurl_url,omitempty"`
}

// Reaction is one emoji reaction entry on a message.
type Reaction struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ReactionCount returns the sum of all reaction counts on the message.
func (m Message) ReactionCount() int {
	total := 0
	for _, r := range m.Reactions {
		if r.Count > 0 {
			total += r.Count
		}
	}
	return total
}

// HistoryPage is one page of channel history, newest message first.
type HistoryPage struct {
	Messages []Message
	HasMore  bool
}
