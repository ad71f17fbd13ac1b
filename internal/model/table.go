package model

// Table is a rectangular grid of text cells as produced by a table extractor.
// Missing cells are empty strings.
type Table [][]string

// Page holds the tables extracted from a single document page.
type Page struct {
	Number int     `json:"number"`
	Tables []Table `json:"tables"`
}
