package services

import (
	"net/url"
	"unicode/utf16"

	"spotfinder_go_backend/internal/models"
)

type SourceKind string

const (
	SourceWeb  SourceKind = "web"
	SourceMaps SourceKind = "maps"
)

type SourceRef struct {
	Kind  SourceKind `json:"kind"`
	URI   string     `json:"uri"`
	Title string     `json:"title"`
}

// UniqueSources flattens grounding chunks, keeping the first chunk per URI.
func UniqueSources(metadata *models.GroundingMetadata) []SourceRef {
	if metadata == nil {
		return nil
	}
	seen := make(map[string]bool, len(metadata.GroundingChunks))
	var out []SourceRef
	for _, chunk := range metadata.GroundingChunks {
		var ref SourceRef
		switch {
		case chunk.Web != nil:
			ref = SourceRef{Kind: SourceWeb, URI: chunk.Web.URI, Title: chunk.Web.Title}
		case chunk.Maps != nil:
			ref = SourceRef{Kind: SourceMaps, URI: chunk.Maps.URI, Title: chunk.Maps.Title}
		default:
			continue
		}
		if seen[ref.URI] {
			continue
		}
		seen[ref.URI] = true
		out = append(out, ref)
	}
	return out
}

func Hostname(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// SourcePalette is the fixed chip palette; its order and size keep hostname
// colours stable.
var SourcePalette = []string{"blue", "rose", "amber", "teal", "violet", "fuchsia", "indigo", "orange"}

// PaletteIndex hashes a hostname into [0, n) with h = c + (h<<5) - h over
// UTF-16 code units, where the shift wraps at 32 bits.
func PaletteIndex(hostname string, n int) int {
	if n <= 0 {
		return 0
	}
	var h int64
	for _, cu := range utf16.Encode([]rune(hostname)) {
		shifted := int64(int32(h) << 5)
		h = int64(cu) + (shifted - h)
	}
	if h < 0 {
		h = -h
	}
	return int(h % int64(n))
}
