// file: internal/marker/marker.go
// version: 1.0.0
// guid: 9d4b2f7a-1c3e-4a5b-8d6f-0e9a8b7c6d5e

// Package marker embeds and reads the small identity record that proves a
// written artwork file already reflects a specific provider candidate.
// The record is stored inside the image container itself (PNG tEXt chunk,
// JPEG COM segment) so it survives without a sidecar file.
package marker

import (
	"bytes"
	"encoding/json"
	"os"
)

// Keyword identifies marker payloads inside image containers.
const Keyword = "sonarr_metadata_marker"

// Marker records which provider candidate a file currently represents.
// LanguageTag and RegionTag are empty when the candidate was untagged.
type Marker struct {
	ResourceReference string `json:"resource_reference"`
	LanguageTag       string `json:"language_tag,omitempty"`
	RegionTag         string `json:"region_tag,omitempty"`
}

// Encode embeds m into the image bytes. For containers without a usable
// metadata slot the input is returned unchanged; such files are treated
// as unmarked on every future pass.
func Encode(raw []byte, m Marker) []byte {
	payload, err := json.Marshal(m)
	if err != nil {
		return raw
	}
	switch {
	case isPNG(raw):
		if out, err := encodePNG(raw, payload); err == nil {
			return out
		}
	case isJPEG(raw):
		if out, err := encodeJPEG(raw, payload); err == nil {
			return out
		}
	}
	return raw
}

// Decode extracts a marker from image bytes. It fails closed: any parse
// error, missing slot, or malformed payload yields nil.
func Decode(raw []byte) *Marker {
	var payload []byte
	switch {
	case isPNG(raw):
		payload = decodePNG(raw)
	case isJPEG(raw):
		payload = decodeJPEG(raw)
	}
	if payload == nil {
		return nil
	}
	var m Marker
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil
	}
	if m.ResourceReference == "" {
		return nil
	}
	return &m
}

// ReadFile reads the marker embedded in the file at path, or nil if the
// file is missing, unreadable, or unmarked.
func ReadFile(path string) *Marker {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return Decode(raw)
}

// Matches reports whether m represents the same candidate identity as
// other. All three fields must be equal.
func (m Marker) Matches(other Marker) bool {
	return m.ResourceReference == other.ResourceReference &&
		m.LanguageTag == other.LanguageTag &&
		m.RegionTag == other.RegionTag
}

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func isPNG(raw []byte) bool {
	return len(raw) > len(pngSignature) && bytes.Equal(raw[:len(pngSignature)], pngSignature)
}

func isJPEG(raw []byte) bool {
	return len(raw) > 2 && raw[0] == 0xFF && raw[1] == 0xD8
}
