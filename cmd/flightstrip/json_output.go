package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"flightstrip/internal/naming"
	"flightstrip/internal/namingcache"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type schemeView struct {
	Positions []int       `json:"positions"`
	Kept      map[int]int `json:"kept"`
	Separator string      `json:"separator"`
}

func newSchemeView(s naming.Scheme) *schemeView {
	if len(s.Kept) == 0 {
		return nil
	}
	return &schemeView{Positions: s.Positions(), Kept: s.Kept, Separator: s.Separator}
}

type inferView struct {
	Input      string        `json:"input"`
	Block      string        `json:"block"`
	Meridian   string        `json:"meridian,omitempty"`
	EPSG       int           `json:"epsg,omitempty"`
	RunID      string        `json:"run_id,omitempty"`
	Scheme     *schemeView   `json:"scheme,omitempty"`
	CacheHit   bool          `json:"cache_hit"`
	SampleSize int           `json:"sample_size,omitempty"`
	Counts     []int         `json:"counts,omitempty"`
	Steps      []naming.Step `json:"steps,omitempty"`
	DurationMS int64         `json:"duration_ms"`
	Warning    string        `json:"warning,omitempty"`
	Error      string        `json:"error,omitempty"`
}

type cacheEntryView struct {
	Block    string      `json:"block"`
	Scheme   *schemeView `json:"scheme"`
	CachedAt *time.Time  `json:"cached_at,omitempty"`
}

func newCacheEntryView(e namingcache.Entry) cacheEntryView {
	view := cacheEntryView{Block: e.Key, Scheme: newSchemeView(e.Scheme)}
	if !e.CachedAt.IsZero() {
		at := e.CachedAt
		view.CachedAt = &at
	}
	return view
}
