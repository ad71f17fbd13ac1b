package model

// DiscoveryItem is a located rate schedule announcement awaiting retrieval.
type DiscoveryItem struct {
	DocumentURL string `json:"pdf_url"`
	OriginURL   string `json:"rss_item_url"`
	// MonthKey is the billing month as YYYY-MM, empty until resolved.
	MonthKey string `json:"month_key,omitempty"`
	Title    string `json:"title"`
}

// Resolved reports whether the item carries a month key.
func (d DiscoveryItem) Resolved() bool {
	return d.MonthKey != ""
}
