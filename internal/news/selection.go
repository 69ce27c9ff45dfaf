package news

// Selection is the selector's output snapshot.
//
// Every accepted article sits in exactly one of Sections or Overflow. Lead
// is a copy of the highest scoring article and still appears in its bucket.
// Skipped holds articles dropped by per-article failures and Duplicates
// counts inputs removed by Dedupe; both are kept for logging and never
// written.
type Selection struct {
	Lead       *Article          `json:"Main"`
	Sections   Sections[Article] `json:"sections"`
	Overflow   []Article         `json:"Uncategorized"`
	Skipped    []Article         `json:"-"`
	Duplicates int               `json:"-"`
}

// Accepted returns the number of articles placed in a bucket.
func (s Selection) Accepted() int {
	return s.Sections.Len() + len(s.Overflow)
}

// Item is a redacted newsletter entry.
type Item struct {
	Summary    string   `json:"summary"`
	KeyConcept string   `json:"key_concept"`
	Link       string   `json:"link"`
	Title      string   `json:"title,omitempty"`
	Language   Language `json:"language,omitempty"`
}

// Redacted is the redactor's output snapshot.
type Redacted struct {
	Main     *Item          `json:"Main"`
	Sections Sections[Item] `json:"sections"`
}
