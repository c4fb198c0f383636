package dataset

import (
	"archive/zip"
	"bytes"
	"context"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"sealevel/internal/region"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePackage(t *testing.T, dir, id string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, PackageName(id))
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestExtractIdempotent(t *testing.T) {
	dir := t.TempDir()
	pkg := writePackage(t, dir, "alphaSRTM", buildPackage(t, "alphaSRTM", alphaRecs, true))
	dest := filepath.Join(dir, "tiles", "alphaSRTM")

	var last int64
	require.NoError(t, Extract(context.Background(), pkg, dest, "alphaSRTM", func(done, total int64) {
		assert.GreaterOrEqual(t, done, last)
		assert.LessOrEqual(t, done, total)
		last = done
	}))
	assert.FileExists(t, filepath.Join(dest, IndexFile("alphaSRTM")))

	err := Extract(context.Background(), pkg, dest, "alphaSRTM", nil)
	assert.ErrorIs(t, err, ErrAlreadyExtracted)
	assert.ErrorIs(t, err, fs.ErrExist)

	tilePath := filepath.Join(dest, "11", "300", "alphaSRTM_z11x300y400e3.png")
	require.NoError(t, os.WriteFile(tilePath, []byte("x"), 0o644))
	require.NoError(t, Extract(context.Background(), pkg, dest, "alphaSRTM", nil))
	b, err := os.ReadFile(tilePath)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(b))
}

func TestExtractWithoutRegionPrefix(t *testing.T) {
	dir := t.TempDir()
	pkg := writePackage(t, dir, "betaSRTM", buildPackage(t, "betaSRTM", betaRecs, false))
	dest := filepath.Join(dir, "betaSRTM")
	require.NoError(t, Extract(context.Background(), pkg, dest, "betaSRTM", nil))
	assert.FileExists(t, filepath.Join(dest, IndexFile("betaSRTM")))
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("../../evil.txt")
	require.NoError(t, err)
	_, _ = w.Write([]byte("boom"))
	require.NoError(t, zw.Close())
	pkg := writePackage(t, dir, "evil", buf.Bytes())

	dest := filepath.Join(dir, "a", "b")
	err = Extract(context.Background(), pkg, dest, "evil", nil)
	assert.ErrorIs(t, err, ErrUnsafePath)
	_, statErr := os.Stat(filepath.Join(dir, "evil.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtractEmptyPackage(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, zip.NewWriter(&buf).Close())
	pkg := writePackage(t, dir, "empty", buf.Bytes())
	assert.ErrorIs(t, Extract(context.Background(), pkg, filepath.Join(dir, "out"), "empty", nil), ErrEmptyPackage)
}

func TestExtractHonoursCancellation(t *testing.T) {
	dir := t.TempDir()
	pkg := writePackage(t, dir, "alphaSRTM", buildPackage(t, "alphaSRTM", alphaRecs, true))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Extract(ctx, pkg, filepath.Join(dir, "out"), "alphaSRTM", nil), context.Canceled)
}

func TestHTTPFetcher(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 200<<10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/packages/alphaSRTM.zip" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL+"/packages", 0)
	var buf bytes.Buffer
	var done, total int64
	err := f.Fetch(context.Background(), region.Region{ID: "alphaSRTM", PackageSize: 1}, &buf, func(d, tot int64) {
		done, total = d, tot
	})
	require.NoError(t, err)
	assert.Equal(t, payload, buf.Bytes())
	assert.EqualValues(t, len(payload), done)
	assert.EqualValues(t, len(payload), total)

	err = f.Fetch(context.Background(), region.Region{ID: "betaSRTM"}, &buf, nil)
	assert.ErrorContains(t, err, "status 404")
}

func TestDirFetcherThroughSynchronizer(t *testing.T) {
	bundle := t.TempDir()
	writePackage(t, bundle, "alphaSRTM", buildPackage(t, "alphaSRTM", alphaRecs, true))
	s := New(Options{Catalog: testCatalog(t), Fetcher: &DirFetcher{Dir: bundle}, TilesDir: t.TempDir(), KeepPackages: true})
	t.Cleanup(s.Close)

	_, err := s.Select("alphaSRTM")
	require.NoError(t, err)
	s.Wait()
	assert.Equal(t, StateReady, s.Status().State, s.Status().LastError)
	assert.FileExists(t, filepath.Join(s.opts.PackagesDir, "alphaSRTM.zip"))

	_, err = s.Select("betaSRTM")
	require.NoError(t, err)
	s.Wait()
	var te *TransferError
	assert.ErrorAs(t, s.Status().Err, &te)
	assert.Equal(t, "alphaSRTM", s.CurrentID())
}
