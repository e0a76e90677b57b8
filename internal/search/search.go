package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultConcern ResultType = "concern"
	ResultPost    ResultType = "post"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type     ResultType `json:"type"`
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Snippet  string     `json:"snippet"`
	Status   string     `json:"status,omitempty"`
	Category string     `json:"category,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// ConcernRecord is the data we index for a concern. Only the public
// card fields go in; discussion comments and the owner's original
// text never reach the index.
type ConcernRecord struct {
	ID       string `json:"id"`
	Summary  string `json:"summary"`
	Category string `json:"category"`
	Status   string `json:"status"`
}

// PostRecord is the data we index for a community post.
type PostRecord struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	AuthorName string `json:"authorName"`
}
