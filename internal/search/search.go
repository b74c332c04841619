package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Slug    string `json:"slug"`
	AppID   string `json:"appId"`
	AppName string `json:"appName"`
}

// Query describes a search request. AppIDs limits results to the apps
// the caller can see; an empty list means no results.
type Query struct {
	Text   string
	AppIDs []string
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over documents.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// DocumentRecord is the data we index for a document.
type DocumentRecord struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Slug    string `json:"slug"`
	AppID   string `json:"appId"`
	AppName string `json:"appName"`
}
