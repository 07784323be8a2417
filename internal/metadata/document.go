// internal/metadata/document.go
package metadata

import "encoding/json"

// MaxAttributes caps how many tags end up as attributes.
const MaxAttributes = 10

// Creator is a creator entry of the off-chain document. Shares are not
// validated here.
type Creator struct {
	Address string `json:"address"`
	Share   uint8  `json:"share"`
}

// Input is what a caller knows about the token when building its metadata.
type Input struct {
	Name        string
	Symbol      string
	Description string
	Image       string
	Tags        []string
	Creators    []Creator
}

type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

type Properties struct {
	Category string    `json:"category"`
	Creators []Creator `json:"creators"`
}

// Document is the full off-chain metadata JSON.
type Document struct {
	Name        string      `json:"name"`
	Symbol      string      `json:"symbol"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
	Properties  Properties  `json:"properties"`
}

// BuildDocument assembles the document uploaded to off-chain storage.
func BuildDocument(in Input) Document {
	tags := in.Tags
	if len(tags) > MaxAttributes {
		tags = tags[:MaxAttributes]
	}
	attrs := make([]Attribute, 0, len(tags))
	for _, t := range tags {
		attrs = append(attrs, Attribute{TraitType: "tag", Value: t})
	}

	creators := make([]Creator, 0, len(in.Creators))
	creators = append(creators, in.Creators...)

	return Document{
		Name:        in.Name,
		Symbol:      in.Symbol,
		Description: in.Description,
		Image:       in.Image,
		Attributes:  attrs,
		Properties: Properties{
			Category: "ft",
			Creators: creators,
		},
	}
}

// Marshal serializes the document for upload.
func (d Document) Marshal() ([]byte, error) {
	return json.Marshal(d)
}
