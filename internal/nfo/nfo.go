// file: internal/nfo/nfo.go
// version: 1.0.0
// guid: f6a7b8c9-d0e1-4f2a-3b4c-d5e6f7a8b9c0

// Package nfo parses and rewrites Kodi/Emby .nfo metadata files. The
// parser keeps every element it does not understand, so a rewrite only
// touches the title and description fields and leaves the rest of the
// document byte-for-byte equivalent after re-indentation.
package nfo

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kfstorm/sonarr-metadata-rewrite/internal/models"
)

// File kinds recognized by Extract. Kodi uses tvshow/episodedetails;
// Emby additionally writes series/episode roots.
const (
	KindSeries  = "tvshow"
	KindEpisode = "episodedetails"
	KindUnknown = "unknown"
)

// ErrEmpty is returned by Parse when the input holds no elements.
var ErrEmpty = errors.New("nfo: no XML elements found")

// Node is a generic XML element. Unknown children survive a
// parse/marshal round trip untouched.
type Node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []*Node    `xml:",any"`
}

// Child returns the first direct child with the given local name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.XMLName.Local == name {
			return c
		}
	}
	return nil
}

// ChildText returns the trimmed text of the named direct child, or ""
// when the child is absent.
func (n *Node) ChildText(name string) string {
	c := n.Child(name)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text)
}

// SetChildText updates the named direct child's text. Missing elements
// are left missing: rewriting never invents fields Sonarr did not write.
func (n *Node) SetChildText(name, text string) bool {
	c := n.Child(name)
	if c == nil {
		return false
	}
	c.Text = text
	return true
}

// Document is a parsed .nfo file. Sonarr writes one root element per
// file except for multi-episode files, which concatenate several
// episodedetails roots.
type Document struct {
	Blocks []*Node
}

// MultiEpisode reports whether the file held more than one root element.
func (d *Document) MultiEpisode() bool { return len(d.Blocks) > 1 }

// Parse decodes every root element in data. A partially written file
// (truncated by a concurrent Sonarr write) surfaces as a parse error the
// caller is expected to retry.
func Parse(data []byte) (*Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	doc := &Document{}
	for {
		var n Node
		err := dec.Decode(&n)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse nfo: %w", err)
		}
		normalize(&n)
		doc.Blocks = append(doc.Blocks, &n)
	}
	if len(doc.Blocks) == 0 {
		return nil, ErrEmpty
	}
	return doc, nil
}

// normalize strips the indentation chardata that containers accumulate
// during decoding so Marshal can re-indent cleanly.
func normalize(n *Node) {
	if len(n.Children) > 0 && strings.TrimSpace(n.Text) == "" {
		n.Text = ""
	}
	for _, c := range n.Children {
		normalize(c)
	}
}

// Marshal renders the document with two-space indentation and no XML
// declaration, matching the files Sonarr emits. Multi-episode blocks are
// concatenated the way they arrived.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	for i, block := range doc.Blocks {
		if i > 0 {
			buf.WriteByte('\n')
		}
		enc := xml.NewEncoder(&buf)
		enc.Indent("", "  ")
		if err := enc.Encode(block); err != nil {
			return nil, fmt.Errorf("marshal nfo: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("marshal nfo: %w", err)
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Info is the metadata extracted from one root element.
type Info struct {
	Kind        string
	TmdbID      int
	ExternalIDs models.ExternalIDs
	Season      *int
	Episode     *int
	Title       string
	Description string
}

// Extract pulls identifiers and displayed content from a root element.
// It never fails: unrecognized roots come back as KindUnknown with
// whatever fields were readable.
func Extract(n *Node) Info {
	info := Info{Kind: KindUnknown}
	switch n.XMLName.Local {
	case "tvshow", "series":
		info.Kind = KindSeries
	case "episodedetails", "episode":
		info.Kind = KindEpisode
	}

	collectUniqueIDs(n, &info)

	info.Title = n.ChildText("title")
	// Emby prefers overview, Kodi writes plot.
	if v := n.ChildText("overview"); v != "" {
		info.Description = v
	} else {
		info.Description = n.ChildText("plot")
	}

	if info.Kind == KindEpisode {
		if v, err := strconv.Atoi(n.ChildText("season")); err == nil {
			info.Season = &v
		}
		if v, err := strconv.Atoi(n.ChildText("episode")); err == nil {
			info.Episode = &v
		}
	}
	return info
}

func collectUniqueIDs(n *Node, info *Info) {
	for _, c := range n.Children {
		if c.XMLName.Local == "uniqueid" {
			idType := ""
			for _, a := range c.Attrs {
				if a.Name.Local == "type" {
					idType = strings.ToLower(a.Value)
				}
			}
			value := strings.TrimSpace(c.Text)
			if value == "" {
				continue
			}
			switch idType {
			case "tmdb":
				if v, err := strconv.Atoi(value); err == nil && info.TmdbID == 0 {
					info.TmdbID = v
				}
			case "tvdb":
				if v, err := strconv.Atoi(value); err == nil && info.ExternalIDs.TvdbID == 0 {
					info.ExternalIDs.TvdbID = v
				}
			case "imdb":
				if info.ExternalIDs.ImdbID == "" {
					info.ExternalIDs.ImdbID = value
				}
			}
		}
		collectUniqueIDs(c, info)
	}
}

// ApplyTranslation updates the title and description of one root
// element. Both plot and overview are refreshed when present so a file
// carrying both never shows mixed languages.
func ApplyTranslation(n *Node, tr models.TranslatedContent) {
	n.SetChildText("title", tr.Title.Content)
	n.SetChildText("plot", tr.Description.Content)
	n.SetChildText("overview", tr.Description.Content)
}
