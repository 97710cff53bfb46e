package catalog

import (
	"github.com/Sternrassler/catalog-feed/pkg/media"
	"github.com/Sternrassler/catalog-feed/pkg/resolve"
)

// Metafield is a typed custom attribute as stored upstream.
type Metafield struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Type      string `json:"type"`
	Value     string `json:"value"`
}

// Field converts the metafield for resolution.
func (m Metafield) Field() resolve.Field {
	return resolve.Field{Namespace: m.Namespace, Key: m.Key, Type: m.Type, Value: m.Value}
}

// Image is a product image.
type Image struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	AltText string `json:"altText,omitempty"`
}

// Variant is a purchasable variant of a product.
type Variant struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	SKU        string      `json:"sku"`
	Price      string      `json:"price"`
	Metafields []Metafield `json:"metafields"`
}

// Product is a catalog entity as fetched from the upstream. Detailed is
// false when only identity fields could be loaded.
type Product struct {
	ID          string       `json:"id"`
	Handle      string       `json:"handle"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Vendor      string       `json:"vendor"`
	ProductType string       `json:"productType"`
	Status      string       `json:"status"`
	Tags        []string     `json:"tags"`
	Images      []Image      `json:"images"`
	Media       []media.Node `json:"media"`
	Metafields  []Metafield  `json:"metafields"`
	Variants    []Variant    `json:"variants"`
	Detailed    bool         `json:"-"`
}

// nodes is the `{nodes: [...]}` shape of nested connections.
type nodes[T any] struct {
	Nodes []T `json:"nodes"`
}

type variantNode struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	SKU        string           `json:"sku"`
	Price      string           `json:"price"`
	Metafields nodes[Metafield] `json:"metafields"`
}

// productNode is the wire shape of a product with nested connections.
type productNode struct {
	ID          string             `json:"id"`
	Handle      string             `json:"handle"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Vendor      string             `json:"vendor"`
	ProductType string             `json:"productType"`
	Status      string             `json:"status"`
	Tags        []string           `json:"tags"`
	Images      nodes[Image]       `json:"images"`
	Media       nodes[media.Node]  `json:"media"`
	Metafields  nodes[Metafield]   `json:"metafields"`
	Variants    nodes[variantNode] `json:"variants"`
}

func (n productNode) product() Product {
	variants := make([]Variant, 0, len(n.Variants.Nodes))
	for _, v := range n.Variants.Nodes {
		variants = append(variants, Variant{
			ID:         v.ID,
			Title:      v.Title,
			SKU:        v.SKU,
			Price:      v.Price,
			Metafields: v.Metafields.Nodes,
		})
	}
	return Product{
		ID:          n.ID,
		Handle:      n.Handle,
		Title:       n.Title,
		Description: n.Description,
		Vendor:      n.Vendor,
		ProductType: n.ProductType,
		Status:      n.Status,
		Tags:        n.Tags,
		Images:      n.Images.Nodes,
		Media:       n.Media.Nodes,
		Metafields:  n.Metafields.Nodes,
		Variants:    variants,
		Detailed:    true,
	}
}

// identity is the minimal product shape of the first two-phase pass.
type identity struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Title  string `json:"title"`
}

func (i identity) product() Product {
	return Product{ID: i.ID, Handle: i.Handle, Title: i.Title}
}
