package dataset

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"sealevel/internal/elevation"
	"sealevel/internal/region"
	"sealevel/internal/store"

	"github.com/stretchr/testify/require"
)

// buildPackage：生成一个区域包，含索引与一张原生瓦片
func buildPackage(t *testing.T, id string, recs []elevation.Record, withPrefix bool) []byte {
	t.Helper()
	var idx bytes.Buffer
	require.NoError(t, elevation.Encode(&idx, recs))
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	prefix := ""
	if withPrefix {
		prefix = id + "/"
		_, err := zw.Create(prefix)
		require.NoError(t, err)
	}
	add := func(name string, b []byte) {
		w, err := zw.Create(prefix + name)
		require.NoError(t, err)
		_, err = w.Write(b)
		require.NoError(t, err)
	}
	add(IndexFile(id), idx.Bytes())
	add(fmt.Sprintf("11/300/%s_z11x300y400e3.png", id), []byte("png-bytes"))
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type fakeFetcher struct {
	mu       sync.Mutex
	packages map[string][]byte
	errs     map[string]error
	gates    map[string]chan struct{}
	started  map[string]chan struct{}
	calls    map[string]int
	// lateProgress：取消后仍尝试上报进度，模拟迟到的回调
	lateProgress bool
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		packages: map[string][]byte{},
		errs:     map[string]error{},
		gates:    map[string]chan struct{}{},
		started:  map[string]chan struct{}{},
		calls:    map[string]int{},
	}
}

// gate：该区域的 Fetch 会阻塞直到返回的通道被关闭或 ctx 取消
func (f *fakeFetcher) gate(id string) (release chan struct{}, started chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	release, started = make(chan struct{}), make(chan struct{})
	f.gates[id] = release
	f.started[id] = started
	return release, started
}

func (f *fakeFetcher) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeFetcher) Fetch(ctx context.Context, r region.Region, dst io.Writer, progress ProgressFunc) error {
	f.mu.Lock()
	f.calls[r.ID]++
	gate, data, err := f.gates[r.ID], f.packages[r.ID], f.errs[r.ID]
	if st := f.started[r.ID]; st != nil {
		select {
		case <-st:
		default:
			close(st)
		}
	}
	late := f.lateProgress
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			if late {
				progress(999, 1000)
			}
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	if _, err := dst.Write(data); err != nil {
		return err
	}
	progress(int64(len(data)), int64(len(data)))
	return nil
}

func testCatalog(t *testing.T) *region.Catalog {
	t.Helper()
	c, err := region.NewCatalog([]region.Region{{ID: "alphaSRTM"}, {ID: "betaSRTM"}, {ID: "gammaSRTM"}})
	require.NoError(t, err)
	return c
}

var (
	alphaRecs = []elevation.Record{{Z: 11, X: 300, Y: 400, Elevation: 50}}
	betaRecs  = []elevation.Record{{Z: 11, X: 300, Y: 400, Elevation: 7}, {Z: 12, X: 600, Y: 800, Elevation: 9}}
)

type harness struct {
	sync    *Synchronizer
	fetcher *fakeFetcher
	store   *store.Memory
	tiles   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	f := newFakeFetcher()
	f.packages["alphaSRTM"] = buildPackage(t, "alphaSRTM", alphaRecs, true)
	f.packages["betaSRTM"] = buildPackage(t, "betaSRTM", betaRecs, false)
	f.packages["gammaSRTM"] = buildPackage(t, "gammaSRTM", alphaRecs, true)
	m := store.NewMemory()
	tiles := t.TempDir()
	s := New(Options{
		Catalog:       testCatalog(t),
		Fetcher:       f,
		TilesDir:      tiles,
		Store:         m,
		History:       m,
		DefaultRegion: "alphaSRTM",
	})
	t.Cleanup(s.Close)
	return &harness{sync: s, fetcher: f, store: m, tiles: tiles}
}

// ready：选择并等待完成
func (h *harness) ready(t *testing.T, id string) {
	t.Helper()
	started, err := h.sync.Select(id)
	require.NoError(t, err)
	require.True(t, started)
	h.sync.Wait()
	require.Equal(t, StateReady, h.sync.Status().State, h.sync.Status().LastError)
	require.Equal(t, id, h.sync.CurrentID())
}

// zipOf：按给定成员生成压缩包
func zipOf(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, b := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(b)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// steppedFetcher：逐步上报给定进度，每步等待测试确认后继续
type steppedFetcher struct {
	data  []byte
	steps [][2]int64
	tick  chan struct{}
	ack   chan struct{}
}

func (f *steppedFetcher) Fetch(ctx context.Context, _ region.Region, dst io.Writer, progress ProgressFunc) error {
	for _, st := range f.steps {
		progress(st[0], st[1])
		select {
		case f.tick <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
		select {
		case <-f.ack:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if _, err := dst.Write(f.data); err != nil {
		return err
	}
	progress(int64(len(f.data)), int64(len(f.data)))
	return nil
}
