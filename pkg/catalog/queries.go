package catalog

import "github.com/Sternrassler/catalog-feed/pkg/media"

const productFields = `id
      handle
      title
      description
      vendor
      productType
      status
      tags
      images(first: 50) { nodes { id url altText } }
      media(first: 50) {
        nodes {
          ` + media.AssetFields + `
        }
      }
      metafields(first: 50) { nodes { namespace key type value } }
      variants(first: 100) {
        nodes {
          id
          title
          sku
          price
          metafields(first: 25) { nodes { namespace key type value } }
        }
      }`

// ProductsQuery is the single-pass query embedding every product detail.
const ProductsQuery = `query Products($first: Int!, $after: String) {
  products(first: $first, after: $after) {
    nodes {
      ` + productFields + `
    }
    pageInfo { hasNextPage endCursor }
  }
}`

// ProductIdentitiesQuery enumerates products cheaply for the two-phase path.
const ProductIdentitiesQuery = `query ProductIdentities($first: Int!, $after: String) {
  products(first: $first, after: $after) {
    nodes { id handle title }
    pageInfo { hasNextPage endCursor }
  }
}`

// ProductDetailQuery loads one product's detail by id.
const ProductDetailQuery = `query ProductDetail($id: ID!) {
  product(id: $id) {
    ` + productFields + `
  }
}`
