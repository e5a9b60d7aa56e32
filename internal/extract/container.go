package extract

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/cespare/xxhash/v2"
)

// Container selectors, tried in order. The first group narrows change
// detection to the server list; the rest are broader fallbacks.
var ContainerSelectors = []string{
	`.server-overview, .server-list, [class*="server-info"]`,
	`#root > div > main`,
	`body`,
}

// ObservedContainer returns the subtree that change detection should
// watch: the server list when present, else the main area, else body.
func ObservedContainer(doc *goquery.Document) *goquery.Selection {
	for _, sel := range ContainerSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return doc.Selection
}

// Fingerprint hashes the rendered markup of sel. Equal fingerprints mean
// nothing in the watched subtree changed.
func Fingerprint(sel *goquery.Selection) uint64 {
	h := xxhash.New()
	for i := range sel.Nodes {
		// Render only fails on writer errors and the digest never errors.
		_ = goquery.Render(h, sel.Eq(i))
	}
	return h.Sum64()
}
