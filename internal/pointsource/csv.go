package pointsource

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"flightstrip/internal/geometry"
	"flightstrip/internal/survey"
)

// CSVReader reads delimited text with a header naming the name, x, and y
// columns. The delimiter (';' or ',') is detected from the header line.
type CSVReader struct{}

func NewCSVReader() *CSVReader { return &CSVReader{} }

func (c *CSVReader) Name() string { return "csv" }

func (c *CSVReader) CanHandle(path string) bool { return hasExtension(path, ".csv", ".txt") }

var (
	nameColumns = []string{"name", "img_name", "image", "filename"}
	xColumns    = []string{"x", "easting", "rechtswert"}
	yColumns    = []string{"y", "northing", "hochwert"}
)

func (c *CSVReader) Read(ctx context.Context, r io.Reader) ([]survey.ImagePoint, error) {
	br := bufio.NewReader(r)
	headerLine, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, err
	}
	first := string(headerLine)
	if idx := strings.IndexByte(first, '\n'); idx >= 0 {
		first = first[:idx]
	}

	reader := csv.NewReader(br)
	reader.Comma = ','
	if strings.Count(first, ";") > strings.Count(first, ",") {
		reader.Comma = ';'
	}
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	nameIdx, xIdx, yIdx := -1, -1, -1
	for i, col := range header {
		col = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		switch {
		case contains(nameColumns, col):
			nameIdx = i
		case contains(xColumns, col):
			xIdx = i
		case contains(yColumns, col):
			yIdx = i
		}
	}
	if nameIdx < 0 || xIdx < 0 || yIdx < 0 {
		return nil, fmt.Errorf("header %v must name name, x, and y columns", header)
	}

	var points []survey.ImagePoint
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		x, err := parseCoordinate(record[xIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: x: %w", line, err)
		}
		y, err := parseCoordinate(record[yIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: y: %w", line, err)
		}
		p := survey.ImagePoint{Name: strings.TrimSpace(record[nameIdx]), Location: geometry.Point{X: x, Y: y}}
		if err := validatePoint(p, len(points)); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		points = append(points, p)
	}
	return points, nil
}

// parseCoordinate accepts a decimal comma when the value has no dot.
func parseCoordinate(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if !strings.Contains(value, ".") {
		value = strings.Replace(value, ",", ".", 1)
	}
	return strconv.ParseFloat(value, 64)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
