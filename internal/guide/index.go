package guide

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// xmltvTimeLayout covers the usual XMLTV stamp "20060102150405 -0700".
// Some feeds omit the offset; those parse as local time.
const (
	xmltvTimeLayout       = "20060102150405 -0700"
	xmltvTimeLayoutNoZone = "20060102150405"
)

// Program is one guide entry for a channel.
type Program struct {
	ChannelID   string
	Title       string
	Description string
	Start       time.Time
	Stop        time.Time
}

// Index is an immutable parsed guide: programs per guide channel id plus a
// normalized display-name lookup. Build one with ParseXMLTV and swap it in
// wholesale; never mutate a shared Index.
type Index struct {
	programs map[string][]Program
	byName   map[string]string // NormalizeName(display-name) -> channel id
}

// EmptyIndex is what browsing falls back to when the guide is missing or
// unparseable: every lookup misses, nothing blocks.
func EmptyIndex() *Index {
	return &Index{
		programs: make(map[string][]Program),
		byName:   make(map[string]string),
	}
}

// Programs returns the channel's guide entries sorted by start time.
func (ix *Index) Programs(channelID string) []Program {
	return ix.programs[channelID]
}

// ChannelIDByName resolves a normalized display name to a channel id.
func (ix *Index) ChannelIDByName(norm string) (string, bool) {
	id, ok := ix.byName[norm]
	return id, ok
}

// Names returns all normalized display names in the index. Order is not
// defined; fuzzy scans sort for determinism.
func (ix *Index) Names() []string {
	out := make([]string, 0, len(ix.byName))
	for n := range ix.byName {
		out = append(out, n)
	}
	return out
}

// ChannelCount and ProgramCount describe the index for logs.
func (ix *Index) ChannelCount() int { return len(ix.byName) }

func (ix *Index) ProgramCount() int {
	n := 0
	for _, ps := range ix.programs {
		n += len(ps)
	}
	return n
}

type xmltvChannel struct {
	ID           string   `xml:"id,attr"`
	DisplayNames []string `xml:"display-name"`
}

type xmltvProgramme struct {
	Channel string `xml:"channel,attr"`
	Start   string `xml:"start,attr"`
	Stop    string `xml:"stop,attr"`
	Title   string `xml:"title"`
	Desc    string `xml:"desc"`
}

// ParseXMLTV builds an Index from an XMLTV document. The decoder streams
// element by element so multi-hundred-MB feeds don't balloon memory, and a
// single malformed element is skipped rather than failing the feed. Only a
// broken document (bad XML framing, wrong charset) returns an error.
// Channel ids are trimmed and lowercased, so programme references and the
// portal's epg ids agree regardless of feed casing.
func ParseXMLTV(r io.Reader) (*Index, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	ix := EmptyIndex()
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xmltv: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "channel":
			var ch xmltvChannel
			if err := dec.DecodeElement(&ch, &se); err != nil {
				continue
			}
			id := NormalizeGuideID(ch.ID)
			if id == "" {
				continue
			}
			for _, dn := range ch.DisplayNames {
				norm := NormalizeName(dn)
				if norm == "" {
					continue
				}
				if _, exists := ix.byName[norm]; !exists {
					ix.byName[norm] = id
				}
			}
		case "programme":
			var p xmltvProgramme
			if err := dec.DecodeElement(&p, &se); err != nil {
				continue
			}
			start, err := parseXMLTVTime(p.Start)
			if err != nil {
				continue
			}
			stop, err := parseXMLTVTime(p.Stop)
			if err != nil {
				continue
			}
			id := NormalizeGuideID(p.Channel)
			if id == "" {
				continue
			}
			ix.programs[id] = append(ix.programs[id], Program{
				ChannelID:   id,
				Title:       strings.TrimSpace(p.Title),
				Description: strings.TrimSpace(p.Desc),
				Start:       start,
				Stop:        stop,
			})
		}
	}
	for id := range ix.programs {
		ps := ix.programs[id]
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].Start.Before(ps[j].Start) })
	}
	return ix, nil
}

func parseXMLTVTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(xmltvTimeLayout, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(xmltvTimeLayoutNoZone, s, time.Local)
}
