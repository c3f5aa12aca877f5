package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// PointRow is one row of a generated points CSV.
type PointRow struct {
	Name string
	X, Y float64
}

// WriteFile creates path with the given contents, creating parent directories.
func WriteFile(t testing.TB, path, contents string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WritePointsCSV writes rows as a name;x;y CSV and returns its path.
func WritePointsCSV(t testing.TB, dir, name string, rows []PointRow) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("name;x;y\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s;%.3f;%.3f\n", r.Name, r.X, r.Y)
	}
	path := filepath.Join(dir, name)
	WriteFile(t, path, b.String())
	return path
}

// StripRows generates photos named <date>_FL<strip>_<seq> laid out on
// straight east-west strips spaced far enough apart that each strip
// collapses under the default hull margin.
func StripRows(date string, strips, perStrip int) []PointRow {
	rows := make([]PointRow, 0, strips*perStrip)
	seq := 0
	for s := 1; s <= strips; s++ {
		for i := 0; i < perStrip; i++ {
			seq++
			rows = append(rows, PointRow{
				Name: fmt.Sprintf("%s_FL%d_%04d", date, s, seq),
				X:    float64(i) * 250,
				Y:    float64(s) * 2000,
			})
		}
	}
	return rows
}
