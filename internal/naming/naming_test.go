package naming_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightstrip/internal/geometry"
	"flightstrip/internal/naming"
	"flightstrip/internal/services"
	"flightstrip/internal/survey"
)

type memoryCache struct {
	mu       sync.Mutex
	entries  map[string]naming.Scheme
	storeErr error
	stores   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]naming.Scheme{}}
}

func (c *memoryCache) Lookup(key string) (naming.Scheme, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[key]
	return s, ok
}

func (c *memoryCache) Store(key string, scheme naming.Scheme) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores++
	if c.storeErr != nil {
		return c.storeErr
	}
	c.entries[key] = scheme
	return nil
}

// scriptedVerifier answers from a fixed list of verdicts and records the groups it saw.
type scriptedVerifier struct {
	verdicts []bool
	err      error
	calls    int
	seen     []map[string][]geometry.Point
}

func (v *scriptedVerifier) Verify(ctx context.Context, groups map[string][]geometry.Point) (bool, error) {
	v.calls++
	v.seen = append(v.seen, groups)
	if v.err != nil {
		return false, v.err
	}
	if len(v.verdicts) == 0 {
		return false, nil
	}
	verdict := v.verdicts[0]
	v.verdicts = v.verdicts[1:]
	return verdict, nil
}

type blockingVerifier struct{}

func (blockingVerifier) Verify(ctx context.Context, _ map[string][]geometry.Point) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}

func points(names ...string) []survey.ImagePoint {
	out := make([]survey.ImagePoint, len(names))
	for i, n := range names {
		out[i] = survey.ImagePoint{Name: n, Location: geometry.Point{X: float64(i) * 100, Y: 0}}
	}
	return out
}

// stripBlock builds strips x photos laid out on horizontal lines 1 km apart,
// named <date>_<strip>_<serial> with a block-wide serial.
func stripBlock(strips, photos int) []survey.ImagePoint {
	out := make([]survey.ImagePoint, 0, strips*photos)
	serial := 1
	for s := 0; s < strips; s++ {
		for p := 0; p < photos; p++ {
			out = append(out, survey.ImagePoint{
				Name:     fmt.Sprintf("20230101_FL%d_%04d", s+1, serial),
				Location: geometry.Point{X: float64(p) * 250, Y: float64(s) * 1000},
			})
			serial++
		}
	}
	return out
}

func TestInferDateStripSeqEliminatesSerialFirst(t *testing.T) {
	cache := newMemoryCache()
	verifier := geometry.NewVerifier(geometry.Planar{}, 50, nil)
	inf := naming.NewInferrer(cache, verifier, naming.Options{}, nil)

	res, err := inf.Infer(context.Background(), "2020550", stripBlock(4, 50))
	require.NoError(t, err)
	require.NotEmpty(t, res.Steps)

	assert.Equal(t, 2, res.Steps[0].Eliminated)
	assert.Equal(t, naming.VerdictCollinear, res.Steps[0].Verdict)
	assert.Equal(t, 10, res.SampleSize)
	assert.Equal(t, []int{100, 26, 10}, res.Counts)
	assert.Equal(t, []int{0, 1}, res.Scheme.Positions())
	assert.Equal(t, "_", res.Scheme.Separator)

	label, err := res.Scheme.Label("20230101_FL3_0123")
	require.NoError(t, err)
	assert.Equal(t, "20230101_FL3", label)

	stored, ok := cache.Lookup("2020550")
	require.True(t, ok)
	assert.Equal(t, res.Scheme, stored)
}

func TestInferCacheHitSkipsPipeline(t *testing.T) {
	cache := newMemoryCache()
	verifier := &scriptedVerifier{verdicts: []bool{true}}
	inf := naming.NewInferrer(cache, verifier, naming.Options{}, nil)
	block := points("A_1_x", "A_1_y", "B_2_z", "B_2_w")

	first, err := inf.Infer(context.Background(), "7", block)
	require.NoError(t, err)
	require.False(t, first.CacheHit)
	assert.Equal(t, []int{8, 8, 4}, first.Counts)
	assert.Equal(t, []int{0, 1}, first.Scheme.Positions())
	calls := verifier.calls

	second, err := inf.Infer(context.Background(), "7", nil)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Scheme, second.Scheme)
	assert.Equal(t, calls, verifier.calls, "verifier must not run on a cache hit")
	assert.Equal(t, 1, cache.stores)
}

func TestInferForceBypassesCache(t *testing.T) {
	cache := newMemoryCache()
	cache.entries["7"] = naming.Scheme{Kept: map[int]int{0: 1}, Separator: "-"}
	verifier := &scriptedVerifier{verdicts: []bool{true}}
	inf := naming.NewInferrer(cache, verifier, naming.Options{}, nil)

	res, err := inf.Infer(context.Background(), "7", points("A_1_x", "A_1_y", "B_2_z"), naming.WithForce())
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	assert.Equal(t, "_", cache.entries["7"].Separator)
}

func TestInferAcceptsLastRemainingPositionAfterFailedVerification(t *testing.T) {
	verifier := &scriptedVerifier{verdicts: []bool{false}}
	var hooked []naming.Step
	inf := naming.NewInferrer(newMemoryCache(), verifier, naming.Options{}, nil)

	res, err := inf.Infer(context.Background(), "1",
		points("20230101_FL7_0012", "20230101_FL7_0013", "20230101_FL8_0001"),
		naming.WithStepHook(func(s naming.Step) { hooked = append(hooked, s) }),
	)
	require.NoError(t, err)

	assert.Equal(t, []int{9, 5, 3}, res.Counts)
	require.Len(t, res.Steps, 2)
	assert.Equal(t, 2, res.Steps[0].Eliminated)
	assert.Equal(t, naming.VerdictNotCollinear, res.Steps[0].Verdict)
	assert.Equal(t, 2, res.Steps[0].Groups)
	assert.Equal(t, 1, res.Steps[1].Eliminated)
	assert.Equal(t, naming.VerdictSingle, res.Steps[1].Verdict)
	assert.Equal(t, 1, verifier.calls)
	assert.Equal(t, map[int]int{0: 9}, res.Scheme.Kept)
	assert.Equal(t, res.Steps, hooked)

	groups := verifier.seen[0]
	assert.Len(t, groups["20230101_FL7"], 2)
	assert.Len(t, groups["20230101_FL8"], 1)
}

func TestInferTieBreakPrefersLowestIndex(t *testing.T) {
	verifier := &scriptedVerifier{}
	inf := naming.NewInferrer(nil, verifier, naming.Options{}, nil)

	res, err := inf.Infer(context.Background(), "3", points("a_b_c", "d_e_f", "g_h_i"))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 3}, res.Counts)
	require.Len(t, res.Steps, 2)
	assert.Equal(t, 0, res.Steps[0].Eliminated)
	assert.Equal(t, 1, res.Steps[1].Eliminated)
	assert.Equal(t, []int{2}, res.Scheme.Positions())
}

func TestInferTwoSubpartsAcceptsWithoutVerification(t *testing.T) {
	verifier := &scriptedVerifier{}
	inf := naming.NewInferrer(nil, verifier, naming.Options{}, nil)

	res, err := inf.Infer(context.Background(), "4", points("FL1-001", "FL1-002", "FL2-003"))
	require.NoError(t, err)
	assert.Equal(t, 0, verifier.calls)
	assert.Equal(t, []int{0}, res.Scheme.Positions())
	assert.Equal(t, "-", res.Scheme.Separator)
}

func TestInferExhaustsAtConfiguredCap(t *testing.T) {
	verifier := &scriptedVerifier{}
	inf := naming.NewInferrer(nil, verifier, naming.Options{MaxEliminations: 1}, nil)

	res, err := inf.Infer(context.Background(), "5", points("a_b_c_1", "a_b_d_2", "a_e_d_3"))
	require.ErrorIs(t, err, naming.ErrEliminationExhausted)
	require.NotNil(t, res)
	assert.Len(t, res.Steps, 1)
	assert.Equal(t, 1, verifier.calls)
}

func TestInferWrapsVerifierErrorsAfterRetries(t *testing.T) {
	verifier := &scriptedVerifier{err: errors.New("engine crashed")}
	cache := newMemoryCache()
	inf := naming.NewInferrer(cache, verifier, naming.Options{VerifyRetries: 2}, nil)

	_, err := inf.Infer(context.Background(), "6", points("a_b_1", "a_c_2", "a_c_3"))
	require.ErrorIs(t, err, geometry.ErrGeometry)
	assert.Equal(t, 3, verifier.calls)
	assert.Equal(t, services.ExitFailure, services.ExitCode(err))
	assert.Zero(t, cache.stores)
}

func TestInferTimeout(t *testing.T) {
	inf := naming.NewInferrer(nil, blockingVerifier{}, naming.Options{Timeout: 20 * time.Millisecond}, nil)

	_, err := inf.Infer(context.Background(), "8", points("a_b_1", "a_c_2", "a_c_3"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorIs(t, err, services.ErrTimeout)
	assert.Equal(t, services.ExitTimeout, services.ExitCode(err))
}

func TestInferRejectsMixedSeparators(t *testing.T) {
	cache := newMemoryCache()
	verifier := &scriptedVerifier{}
	inf := naming.NewInferrer(cache, verifier, naming.Options{}, nil)

	res, err := inf.Infer(context.Background(), "9", points("2023-01-0001.tif", "2023_01_0002.tif"))
	require.Nil(t, res)
	require.ErrorIs(t, err, naming.ErrNamingConvention)
	require.ErrorIs(t, err, services.ErrValidation)

	var convErr *naming.ConventionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, naming.KindSeparator, convErr.Kind)
	assert.Zero(t, verifier.calls)
	assert.Zero(t, cache.stores)
}

func TestInferRejectsNonAdjacentPositions(t *testing.T) {
	cache := newMemoryCache()
	verifier := &scriptedVerifier{verdicts: []bool{true}}
	inf := naming.NewInferrer(cache, verifier, naming.Options{}, nil)

	res, err := inf.Infer(context.Background(), "11",
		points("FL1_0001_2023", "FL1_0002_2023", "FL2_0003_2023"))
	require.ErrorIs(t, err, naming.ErrNamingConvention)
	require.ErrorIs(t, err, services.ErrValidation)
	assert.Equal(t, services.ExitValidation, services.ExitCode(err))

	var convErr *naming.ConventionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, naming.KindNonContiguous, convErr.Kind)

	require.NotNil(t, res)
	assert.Equal(t, []int{5, 3, 9}, res.Counts)
	require.Len(t, res.Steps, 1)
	assert.Equal(t, []int{0, 2}, res.Steps[0].Remaining)
	assert.Empty(t, res.Scheme.Kept)
	assert.Zero(t, cache.stores)
}

func TestInferReportsCacheStoreFailure(t *testing.T) {
	cache := newMemoryCache()
	cache.storeErr = errors.New("disk full")
	inf := naming.NewInferrer(cache, &scriptedVerifier{}, naming.Options{}, nil)

	res, err := inf.Infer(context.Background(), "10", points("FL1-001", "FL1-002", "FL2-003"))
	require.ErrorIs(t, err, naming.ErrCacheStore)
	require.NotNil(t, res)
	assert.Equal(t, []int{0}, res.Scheme.Positions())
}

func TestInferRejectsEmptyKey(t *testing.T) {
	inf := naming.NewInferrer(nil, &scriptedVerifier{}, naming.Options{}, nil)
	_, err := inf.Infer(context.Background(), "  ", points("a_1"))
	require.ErrorIs(t, err, services.ErrValidation)
}
