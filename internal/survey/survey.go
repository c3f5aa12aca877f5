// Package survey models survey blocks (operats) and the photo points that
// belong to them.
package survey

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"flightstrip/internal/fileutil"
	"flightstrip/internal/geometry"
)

// MatchReportName is the per-block CSV listing subpart match counts.
const MatchReportName = "flugstreifen_subpart_bestimmen.csv"

// ErrInvalidBlock marks block descriptions that cannot be used.
var ErrInvalidBlock = errors.New("invalid survey block")

// ImagePoint is one aerial photo: its filename and projected centre.
type ImagePoint struct {
	Name     string         `json:"name" yaml:"name"`
	Location geometry.Point `json:"location" yaml:"location"`
}

// Names returns the filenames of points in order.
func Names(points []ImagePoint) []string {
	names := make([]string, len(points))
	for i, p := range points {
		names[i] = p.Name
	}
	return names
}

var meridianEPSG = map[string]int{
	"M28": 31254,
	"M31": 31255,
	"M34": 31256,
}

// EPSGForMeridian returns the MGI / Austria GK projection code of a meridian zone.
func EPSGForMeridian(meridian string) (int, bool) {
	code, ok := meridianEPSG[strings.ToUpper(strings.TrimSpace(meridian))]
	return code, ok
}

// Block describes one survey block inside the processing root.
type Block struct {
	ID       string
	Meridian string
	EPSG     int
	RootDir  string
	Dir      string
}

// NewBlock validates the block description and creates <root>/<meridian>/<id>.
func NewBlock(root, meridian, id string) (*Block, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: block id is empty", ErrInvalidBlock)
	}
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: block id %q is not numeric", ErrInvalidBlock, id)
	}
	meridian = strings.ToUpper(strings.TrimSpace(meridian))
	epsg, ok := EPSGForMeridian(meridian)
	if !ok {
		return nil, fmt.Errorf("%w: meridian %q must be one of M28, M31, M34", ErrInvalidBlock, meridian)
	}
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: processing root is empty", ErrInvalidBlock)
	}

	dir := filepath.Join(root, meridian, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create block directory: %w", err)
	}
	return &Block{ID: id, Meridian: meridian, EPSG: epsg, RootDir: root, Dir: dir}, nil
}

// Key is the identifier used for naming cache entries.
func (b *Block) Key() string {
	return b.ID
}

// MatchReportPath returns where WriteMatchReport writes.
func (b *Block) MatchReportPath() string {
	return filepath.Join(b.Dir, MatchReportName)
}

// WriteMatchReport writes a two-row, semicolon-separated CSV: positions, then
// their match counts.
func (b *Block) WriteMatchReport(counts []int) error {
	header := make([]string, len(counts))
	row := make([]string, len(counts))
	for i, c := range counts {
		header[i] = strconv.Itoa(i)
		row[i] = strconv.Itoa(c)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'
	if err := w.WriteAll([][]string{header, row}); err != nil {
		return fmt.Errorf("encode match report: %w", err)
	}
	if err := fileutil.WriteFileAtomic(b.MatchReportPath(), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write match report: %w", err)
	}
	return nil
}
