package media

import (
	"encoding/json"
	"fmt"
)

// Upstream type names of the media variants.
const (
	TypeMediaImage    = "MediaImage"
	TypeVideo         = "Video"
	TypeExternalVideo = "ExternalVideo"
	TypeModel3d       = "Model3d"
	TypeGenericFile   = "GenericFile"
)

// AssetFields selects every media variant shape. It is shared by the files
// listing, the node lookup, and product media selections.
const AssetFields = `__typename
      ... on MediaImage { id image { url altText } }
      ... on Video { id sources { url mimeType } }
      ... on ExternalVideo { id embedUrl }
      ... on Model3d { id sources { url mimeType } }
      ... on GenericFile { id url }`

// Asset is a media item with a canonical id and at most one URL.
type Asset interface {
	CanonicalID() string
	URL() string
	Kind() string
}

// Source is one rendition of a video or 3D model.
type Source struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
}

// ImageData is the image payload of a MediaImage.
type ImageData struct {
	URL     string `json:"url"`
	AltText string `json:"altText"`
}

// Image is a MediaImage.
type Image struct {
	ID    string     `json:"id"`
	Image *ImageData `json:"image"`
}

func (a Image) CanonicalID() string { return a.ID }
func (a Image) Kind() string        { return TypeMediaImage }

func (a Image) URL() string {
	if a.Image == nil {
		return ""
	}
	return a.Image.URL
}

// Video is a hosted video.
type Video struct {
	ID      string   `json:"id"`
	Sources []Source `json:"sources"`
}

func (a Video) CanonicalID() string { return a.ID }
func (a Video) Kind() string        { return TypeVideo }
func (a Video) URL() string         { return firstSource(a.Sources) }

// ExternalVideo is an embedded third-party video.
type ExternalVideo struct {
	ID       string `json:"id"`
	EmbedURL string `json:"embedUrl"`
}

func (a ExternalVideo) CanonicalID() string { return a.ID }
func (a ExternalVideo) Kind() string        { return TypeExternalVideo }
func (a ExternalVideo) URL() string         { return a.EmbedURL }

// Model3d is a 3D model.
type Model3d struct {
	ID      string   `json:"id"`
	Sources []Source `json:"sources"`
}

func (a Model3d) CanonicalID() string { return a.ID }
func (a Model3d) Kind() string        { return TypeModel3d }
func (a Model3d) URL() string         { return firstSource(a.Sources) }

// GenericFile is any other uploaded file.
type GenericFile struct {
	ID      string `json:"id"`
	FileURL string `json:"url"`
}

func (a GenericFile) CanonicalID() string { return a.ID }
func (a GenericFile) Kind() string        { return TypeGenericFile }
func (a GenericFile) URL() string         { return a.FileURL }

// Unknown holds a node of an unrecognized type. Its URL follows the shared
// precedence: image URL, first source URL, embed URL, file URL.
type Unknown struct {
	Typename string     `json:"__typename"`
	ID       string     `json:"id"`
	Image    *ImageData `json:"image"`
	Sources  []Source   `json:"sources"`
	EmbedURL string     `json:"embedUrl"`
	FileURL  string     `json:"url"`
}

func (a Unknown) CanonicalID() string { return a.ID }
func (a Unknown) Kind() string        { return a.Typename }

func (a Unknown) URL() string {
	switch {
	case a.Image != nil && a.Image.URL != "":
		return a.Image.URL
	case firstSource(a.Sources) != "":
		return firstSource(a.Sources)
	case a.EmbedURL != "":
		return a.EmbedURL
	default:
		return a.FileURL
	}
}

func firstSource(sources []Source) string {
	for _, s := range sources {
		if s.URL != "" {
			return s.URL
		}
	}
	return ""
}

// Node decodes a polymorphic media node into its variant.
type Node struct {
	Asset Asset
}

// UnmarshalJSON dispatches on __typename.
func (n *Node) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		n.Asset = nil
		return nil
	}

	var head struct {
		Typename string `json:"__typename"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("decode media node: %w", err)
	}

	var (
		asset Asset
		err   error
	)
	switch head.Typename {
	case TypeMediaImage:
		asset, err = decodeAs[Image](data)
	case TypeVideo:
		asset, err = decodeAs[Video](data)
	case TypeExternalVideo:
		asset, err = decodeAs[ExternalVideo](data)
	case TypeModel3d:
		asset, err = decodeAs[Model3d](data)
	case TypeGenericFile:
		asset, err = decodeAs[GenericFile](data)
	default:
		asset, err = decodeAs[Unknown](data)
	}
	if err != nil {
		return fmt.Errorf("decode %s node: %w", head.Typename, err)
	}
	n.Asset = asset
	return nil
}

// MarshalJSON encodes the node as {__typename, id, url}.
func (n Node) MarshalJSON() ([]byte, error) {
	if n.Asset == nil {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		Typename string `json:"__typename"`
		ID       string `json:"id"`
		URL      string `json:"url,omitempty"`
	}{n.Asset.Kind(), n.Asset.CanonicalID(), n.Asset.URL()})
}

func decodeAs[T Asset](data []byte) (Asset, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
