package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"flightstrip/internal/config"
	"flightstrip/internal/geometry"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckGeometryEngine verifies that the configured engine can be constructed
// in this build. The raster engine needs the gocv build tag.
func CheckGeometryEngine(cfg config.Geometry) Result {
	const name = "Geometry engine"

	if _, err := geometry.NewEngine(cfg.Engine, cfg.RasterResolution); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", cfg.Engine, err)}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Engine}
}
