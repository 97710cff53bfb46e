package transform

import (
	"github.com/Sternrassler/catalog-feed/pkg/catalog"
	"github.com/Sternrassler/catalog-feed/pkg/resolve"
)

// Record is one denormalized product in the feed.
type Record struct {
	ID            string                  `json:"id"`
	Handle        string                  `json:"handle"`
	Title         string                  `json:"title"`
	Description   string                  `json:"description"`
	Vendor        string                  `json:"vendor"`
	ProductType   string                  `json:"productType"`
	Status        string                  `json:"status"`
	Tags          []string                `json:"tags"`
	Images        []catalog.Image         `json:"images"`
	Media         []MediaRef              `json:"media"`
	Metafields    []resolve.ResolvedField `json:"metafields"`
	Variants      []VariantRecord         `json:"variants"`
	DetailMissing bool                    `json:"detailMissing"`
}

// MediaRef is a product media item reduced to its URL.
type MediaRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// VariantRecord is a variant with resolved metafields.
type VariantRecord struct {
	ID         string                  `json:"id"`
	Title      string                  `json:"title"`
	SKU        string                  `json:"sku"`
	Price      string                  `json:"price"`
	Metafields []resolve.ResolvedField `json:"metafields"`
}

// Output is the result of one pipeline run.
type Output struct {
	Records []Record `json:"records"`
	Report  *Report  `json:"report"`
}

// Find returns the record with the given handle.
func (o *Output) Find(handle string) (Record, bool) {
	if o == nil {
		return Record{}, false
	}
	for _, r := range o.Records {
		if r.Handle == handle {
			return r, true
		}
	}
	return Record{}, false
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
