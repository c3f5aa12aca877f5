package naming

// Default sampling parameters.
const (
	DefaultSampleLimit  = 500
	DefaultSampleStride = 20
)

// Sample returns the indices of the points fed to frequency analysis: every
// stride-th index below min(n, limit). Blocks with fewer than stride points are
// sampled completely. Non-positive limit or stride fall back to the defaults.
func Sample(n, limit, stride int) []int {
	if n <= 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultSampleLimit
	}
	if stride <= 0 {
		stride = DefaultSampleStride
	}
	end := min(n, limit)
	if n < stride {
		stride = 1
	}
	indices := make([]int, 0, (end+stride-1)/stride)
	for i := 0; i < end; i += stride {
		indices = append(indices, i)
	}
	return indices
}
