package medprice

// Converter converts HTML to Markdown.
type Converter interface {
	// Convert transforms clean HTML (e.g., from an Extractor) into Markdown,
	// which is what LLM-backed RecordExtractors receive.
	Convert(html string) (string, error)
}
