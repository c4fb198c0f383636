package region

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	assert.Equal(t, 52, c.Len())

	r, ok := c.Get(DefaultID)
	require.True(t, ok)
	assert.Equal(t, "New York City", r.Label)
	assert.InDelta(t, 40.713956, r.Center.Lat(), 1e-9)
	assert.InDelta(t, -74.003906, r.Center.Lon(), 1e-9)
	assert.Equal(t, DefaultPackageSize, r.PackageSize)

	_, ok = c.Get("atlantisSRTM")
	assert.False(t, ok)
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "Ho Chi Minh City", Humanize("hoChiMinhCitySRTM"))
	assert.Equal(t, "Tokyo", Humanize("tokyoSRTM"))
	assert.Equal(t, "Custom", Humanize("custom"))
}

func TestBoundAndContains(t *testing.T) {
	r := Region{ID: "x", Center: orb.Point{10, 50}, LatDelta: 2, LonDelta: 4}
	b := r.Bound()
	assert.Equal(t, orb.Point{8, 49}, b.Min)
	assert.Equal(t, orb.Point{12, 51}, b.Max)
	assert.True(t, r.Contains(orb.Point{11, 50.5}))
	assert.False(t, r.Contains(orb.Point{13, 50}))
}

func TestNearest(t *testing.T) {
	c := Default()
	// Hoboken, NJ
	r, d, ok := c.Nearest(orb.Point{-74.0324, 40.7440})
	require.True(t, ok)
	assert.Equal(t, "newYorkCitySRTM", r.ID)
	assert.Less(t, d, 10000.0)

	// middle of the Atlantic picks something, distance is large
	_, d, ok = c.Nearest(orb.Point{-40, 30})
	require.True(t, ok)
	assert.Greater(t, d, 1000000.0)

	empty, err := NewCatalog(nil)
	require.NoError(t, err)
	_, _, ok = empty.Nearest(orb.Point{0, 0})
	assert.False(t, ok)
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCatalog([]Region{{ID: "a"}, {ID: "a"}})
	assert.Error(t, err)
	_, err = NewCatalog([]Region{{ID: ""}})
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "regions.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
regions:
  - id: hamburgSRTM
    center: [53.55, 9.99]
    span: [0.4, 0.7]
    package_size: 1048576
  - id: bremenSRTM
    label: Bremen Port
    center: [53.08, 8.80]
    span: [0.3, 0.5]
`), 0o644))

	c, err := LoadFile(p)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	r, ok := c.Get("hamburgSRTM")
	require.True(t, ok)
	assert.Equal(t, "Hamburg", r.Label)
	assert.InDelta(t, 53.55, r.Center.Lat(), 1e-9)
	assert.InDelta(t, 9.99, r.Center.Lon(), 1e-9)
	assert.Equal(t, int64(1048576), r.PackageSize)

	r, _ = c.Get("bremenSRTM")
	assert.Equal(t, "Bremen Port", r.Label)
	assert.Equal(t, DefaultPackageSize, r.PackageSize)
	assert.Equal(t, "hamburgSRTM", c.All()[0].ID)
}

func TestLoadFileBadSpan(t *testing.T) {
	p := filepath.Join(t.TempDir(), "regions.yaml")
	require.NoError(t, os.WriteFile(p, []byte("regions:\n  - id: a\n    center: [1, 2]\n    span: [0, 1]\n"), 0o644))
	_, err := LoadFile(p)
	assert.Error(t, err)
}

func TestLoadEmptyPathUsesBuiltin(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, len(Builtin()), c.Len())
}
