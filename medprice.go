// Package medprice resolves free-text medicine queries into price quotes from
// multiple online pharmacies. Quotes live in a local catalog; when the catalog
// cannot answer a query with enough fresh matches, an enrichment job searches
// the web in the background and merges what it extracts back into the catalog.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, postgres/, firecrawl/).
package medprice
