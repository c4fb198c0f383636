// 包 dataset：区域数据集的下载、解压与索引切换
//
// 同一时刻只有一个活动请求；新的选择会取消旧请求（context 取消 + 代号递增），
// 被取代的请求不会再发布任何进度或完成状态。
package dataset

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sealevel/internal/elevation"
	"sealevel/internal/logger"
	"sealevel/internal/metrics"
	"sealevel/internal/region"
	"sealevel/internal/store"
	"sync"
	"sync/atomic"
	"time"
)

type State string

const (
	StateIdle        State = "idle"
	StateDownloading State = "downloading"
	StateExtracting  State = "extracting"
	StateReady       State = "ready"
	StateFailed      State = "failed"
)

// Status：对外发布的不可变快照
type Status struct {
	State     State     `json:"state"`
	Step      string    `json:"step,omitempty"`
	Selected  string    `json:"selected"`
	Current   string    `json:"current"`
	Busy      bool      `json:"busy"`
	Completed int64     `json:"completed"`
	Total     int64     `json:"total"`
	Fraction  float64   `json:"fraction"`
	LastError string    `json:"last_error,omitempty"`
	Err       error     `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`

	gen uint64
}

// IndexFile 区域索引文件名
func IndexFile(id string) string { return id + "_solid.dat" }

// IndexPath 区域索引在磁盘上的位置
func IndexPath(tilesDir, id string) string {
	return filepath.Join(tilesDir, id, IndexFile(id))
}

type Options struct {
	Catalog       *region.Catalog
	Fetcher       Fetcher
	TilesDir      string
	PackagesDir   string
	KeepPackages  bool
	Index         *elevation.Holder
	Store         store.SelectionStore
	History       store.History
	DefaultRegion string
	Logger        *slog.Logger
}

// 文档注释：数据集同步器
// 背景：每次选择启动一个 worker，依次执行 下载 → 解压 → 加载索引 → 发布就绪；
// 写者由 mu 串行化，发布前比对代号，读者经 atomic.Pointer 读取快照。
// 约束：新 worker 先等待被取消的 worker 退出，任意时刻至多一个 worker 操作磁盘。
type Synchronizer struct {
	opts Options
	log  *slog.Logger

	base     context.Context
	stop     context.CancelFunc
	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	inflight string
	done     chan struct{}
	closed   bool
	subs     map[uint64]chan Status
	nextSub  uint64
	wg       sync.WaitGroup

	status  atomic.Pointer[Status]
	current atomic.Pointer[region.Region]
}

func New(opts Options) *Synchronizer {
	if opts.Catalog == nil {
		opts.Catalog = region.Default()
	}
	if opts.Index == nil {
		opts.Index = elevation.NewHolder(opts.Logger)
	}
	if opts.PackagesDir == "" {
		opts.PackagesDir = filepath.Join(opts.TilesDir, ".packages")
	}
	if opts.DefaultRegion == "" {
		opts.DefaultRegion = region.DefaultID
	}
	base, stop := context.WithCancel(context.Background())
	s := &Synchronizer{
		opts: opts,
		log:  logger.Component(opts.Logger, "dataset"),
		base: base,
		stop: stop,
		subs: make(map[uint64]chan Status),
	}
	s.status.Store(&Status{State: StateIdle, UpdatedAt: time.Now()})
	return s
}

// Status 当前快照
func (s *Synchronizer) Status() Status { return *s.status.Load() }

// Current 当前就绪区域
func (s *Synchronizer) Current() (region.Region, bool) {
	if r := s.current.Load(); r != nil {
		return *r, true
	}
	return region.Region{}, false
}

// CurrentID 当前就绪区域标识，无则为空串
func (s *Synchronizer) CurrentID() string {
	if r := s.current.Load(); r != nil {
		return r.ID
	}
	return ""
}

func (s *Synchronizer) Catalog() *region.Catalog { return s.opts.Catalog }

func (s *Synchronizer) Index() *elevation.Holder { return s.opts.Index }

// Available：区域包是否已解压到本地（索引文件存在）
func (s *Synchronizer) Available(id string) bool {
	st, err := os.Stat(IndexPath(s.opts.TilesDir, id))
	return err == nil && st.Mode().IsRegular()
}

// 文档注释：选择区域
// 返回：是否启动了新的请求；未知区域返回 region.ErrUnknown。
// 约束：已就绪且空闲的区域、正在请求中的区域均为空操作；请求其他区域期间重新选择当前区域，
// 取消该请求并重新发布就绪状态。
func (s *Synchronizer) Select(id string) (bool, error) {
	r, ok := s.opts.Catalog.Get(id)
	if !ok {
		return false, region.ErrUnknown
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	cur := s.current.Load()
	if s.inflight == r.ID || (s.inflight == "" && cur != nil && cur.ID == r.ID) {
		metrics.DatasetSyncTotal.WithLabelValues("noop").Inc()
		s.log.Debug("dataset_select_noop", "region", r.ID)
		return false, nil
	}

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		metrics.DatasetSyncTotal.WithLabelValues("cancelled").Inc()
		s.log.Info("dataset_request_cancelled", "region", s.inflight, "superseded_by", r.ID)
	}
	s.gen++
	if cur != nil && cur.ID == r.ID {
		s.inflight = ""
		s.publishLocked(Status{State: StateReady, Selected: r.ID, Current: r.ID})
		metrics.SyncProgress.Set(0)
		return false, nil
	}

	ctx, cancel := context.WithCancel(s.base)
	prev := s.done
	done := make(chan struct{})
	s.cancel = cancel
	s.inflight = r.ID
	s.done = done
	s.publishLocked(Status{
		State:    StateDownloading,
		Step:     "downloading",
		Selected: r.ID,
		Current:  currentID(cur),
		Busy:     true,
		Total:    r.PackageSize,
	})
	s.wg.Add(1)
	go s.run(ctx, cancel, s.gen, r, prev, done)
	s.log.Info("dataset_request_started", "region", r.ID)
	return true, nil
}

// 文档注释：启动时恢复上次的区域
// 背景：读取持久化选择（缺失或不在目录中时用默认区域）；已解压则直接加载索引，否则发起请求。
func (s *Synchronizer) Resume(ctx context.Context) error {
	id := s.opts.DefaultRegion
	if s.opts.Store != nil {
		saved, err := s.opts.Store.LoadSelection(ctx)
		switch {
		case err == nil:
			id = saved
		case errors.Is(err, store.ErrNoSelection):
		default:
			s.log.Warn("dataset_resume_load_selection_failed", "err", err)
		}
	}
	if _, ok := s.opts.Catalog.Get(id); !ok {
		s.log.Warn("dataset_resume_unknown_region", "region", id, "fallback", s.opts.DefaultRegion)
		id = s.opts.DefaultRegion
	}
	if s.Available(id) && s.adopt(id) {
		return nil
	}
	_, err := s.Select(id)
	return err
}

// adopt：本地已有数据时跳过下载，直接加载索引并发布就绪
func (s *Synchronizer) adopt(id string) bool {
	r, ok := s.opts.Catalog.Get(id)
	if !ok {
		return false
	}
	path := IndexPath(s.opts.TilesDir, id)
	ix, lerr := elevation.Load(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.inflight != "" {
		return false
	}
	if swapped, _ := s.opts.Index.Offer(id, path, ix, lerr); !swapped {
		return false
	}
	s.current.Store(&r)
	s.publishLocked(Status{State: StateReady, Selected: id, Current: id})
	s.log.Info("dataset_resumed_local", "region", id, "records", ix.Len())
	return true
}

// ReloadIndex：重新读取当前区域的索引文件，用于离线重建索引后热加载；规则同 elevation.Holder.Reload
func (s *Synchronizer) ReloadIndex() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.CurrentID()
	if id == "" {
		return false, ErrNoCurrent
	}
	return s.opts.Index.Reload(id, IndexPath(s.opts.TilesDir, id))
}

// DismissError：清除对外展示的错误
func (s *Synchronizer) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := *s.status.Load()
	if st.LastError == "" && st.Err == nil {
		return
	}
	st.LastError, st.Err = "", nil
	if st.State == StateFailed {
		st.State = StateIdle
		if st.Current != "" {
			st.State = StateReady
		}
	}
	s.publishLocked(st)
}

// 文档注释：订阅状态变化
// 返回：容量为 1 的通道，慢读者只会拿到最新快照；调用返回的函数取消订阅。
func (s *Synchronizer) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- *s.status.Load()
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
		s.mu.Unlock()
	}
}

// Wait 等待所有 worker 退出
func (s *Synchronizer) Wait() { s.wg.Wait() }

// Close 取消活动请求并等待退出；之后的 Select 返回 ErrClosed
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++
	s.stop()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Synchronizer) run(ctx context.Context, cancel context.CancelFunc, gen uint64, r region.Region, prev <-chan struct{}, done chan struct{}) {
	defer s.wg.Done()
	defer close(done)
	defer cancel()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
		}
	}
	if ctx.Err() != nil {
		return
	}
	t0 := time.Now()

	pkg, err := s.download(ctx, gen, r)
	if err != nil {
		s.fail(gen, r, t0, &TransferError{Region: r.ID, Err: err})
		return
	}
	if !s.opts.KeepPackages {
		defer os.Remove(pkg)
	}

	s.publish(gen, func(st *Status) {
		st.State = StateExtracting
		st.Step = "preparing"
		st.Completed, st.Total = 0, 0
	})
	dest := filepath.Join(s.opts.TilesDir, r.ID)
	err = Extract(ctx, pkg, dest, r.ID, func(n, total int64) {
		s.progress(gen, n, total)
	})
	if errors.Is(err, fs.ErrExist) {
		s.log.Info("dataset_extract_already_present", "region", r.ID)
		err = nil
	}
	if err != nil {
		s.fail(gen, r, t0, &ExtractionError{Region: r.ID, Err: err})
		return
	}
	s.log.Info("dataset_extract_done", "region", r.ID, "dest", dest)

	path := IndexPath(s.opts.TilesDir, r.ID)
	ix, lerr := elevation.Load(path)
	ok, err := s.commit(gen, r, path, ix, lerr)
	if err != nil {
		s.fail(gen, r, t0, &ExtractionError{Region: r.ID, Err: err})
		return
	}
	if !ok {
		return
	}
	dur := time.Since(t0)
	metrics.DatasetSyncTotal.WithLabelValues("ready").Inc()
	metrics.DatasetSyncDurationMs.Observe(float64(dur.Milliseconds()))
	s.log.Info("dataset_ready", "region", r.ID, "records", ix.Len(), "duration_ms", dur.Milliseconds())

	bg, cancelBG := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelBG()
	if s.opts.Store != nil {
		if err := s.opts.Store.SaveSelection(bg, r.ID); err != nil {
			s.log.Warn("dataset_persist_selection_failed", "region", r.ID, "err", err)
		}
	}
	s.record(bg, r.ID, "ready", nil, t0)
}

// download：写入 PackagesDir/{id}.zip.part，完成后 rename
func (s *Synchronizer) download(ctx context.Context, gen uint64, r region.Region) (string, error) {
	if s.opts.Fetcher == nil {
		return "", errors.New("no package source configured")
	}
	if err := os.MkdirAll(s.opts.PackagesDir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(s.opts.PackagesDir, PackageName(r.ID))
	tmp := dst + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	err = s.opts.Fetcher.Fetch(ctx, r, f, func(done, total int64) {
		s.progress(gen, done, total)
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// 文档注释：代号仍有效时切换索引与当前区域并发布就绪
// 约束：索引缺失、为空或无法解码时不切换区域，返回错误由调用方按失败处理，与 adopt 的判定一致；
// 尾部截断但已有记录时照常就绪。
func (s *Synchronizer) commit(gen uint64, r region.Region, path string, ix *elevation.Index, lerr error) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false, nil
	}
	if swapped, err := s.opts.Index.Offer(r.ID, path, ix, lerr); !swapped {
		return false, err
	}
	s.current.Store(&r)
	s.inflight = ""
	s.cancel = nil
	s.publishLocked(Status{State: StateReady, Selected: r.ID, Current: r.ID})
	metrics.SyncProgress.Set(0)
	return true, nil
}

// fail：被取代的请求静默退出；否则保留当前区域并记录错误
func (s *Synchronizer) fail(gen uint64, r region.Region, t0 time.Time, err error) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.log.Debug("dataset_superseded_exit", "region", r.ID, "err", err)
		return
	}
	s.inflight = ""
	s.cancel = nil
	cur := s.CurrentID()
	s.publishLocked(Status{State: StateFailed, Selected: r.ID, Current: cur, LastError: err.Error(), Err: err})
	s.mu.Unlock()

	metrics.DatasetSyncTotal.WithLabelValues("failed").Inc()
	metrics.SyncProgress.Set(0)
	s.log.Error("dataset_request_failed", "region", r.ID, "current", cur, "err", err)
	bg, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.record(bg, r.ID, "failed", err, t0)
}

func (s *Synchronizer) record(ctx context.Context, id, outcome string, err error, t0 time.Time) {
	if s.opts.History == nil {
		return
	}
	rec := store.SyncRecord{Region: id, Outcome: outcome, StartedAt: t0, DurationMs: time.Since(t0).Milliseconds()}
	if err != nil {
		rec.Error = err.Error()
	}
	if herr := s.opts.History.RecordSync(ctx, rec); herr != nil {
		s.log.Warn("dataset_history_record_failed", "region", id, "err", herr)
	}
}

// progress：字节进度单调不减
func (s *Synchronizer) progress(gen uint64, done, total int64) {
	s.publish(gen, func(st *Status) {
		if done > st.Completed {
			st.Completed = done
		}
		if total > 0 {
			st.Total = total
		}
	})
}

// publish：代号匹配时在当前快照上修改并发布
func (s *Synchronizer) publish(gen uint64, fn func(*Status)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	st := *s.status.Load()
	fn(&st)
	s.publishLocked(st)
	return true
}

// publishLocked：调用方持有 mu
func (s *Synchronizer) publishLocked(st Status) {
	if st.Total > 0 {
		st.Fraction = float64(st.Completed) / float64(st.Total)
		if st.Fraction > 1 {
			st.Fraction = 1
		}
	} else {
		st.Fraction = 0
	}
	// 同一请求同一阶段内不回退：总量中途变大时保持已发布的比例
	st.gen = s.gen
	if prev := s.status.Load(); prev != nil && prev.gen == st.gen && prev.State == st.State && prev.Fraction > st.Fraction {
		st.Fraction = prev.Fraction
	}
	if st.State == StateReady {
		st.Fraction = 1
	}
	st.UpdatedAt = time.Now()
	s.status.Store(&st)
	if st.Busy {
		metrics.SyncProgress.Set(st.Fraction)
	}
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

func currentID(r *region.Region) string {
	if r == nil {
		return ""
	}
	return r.ID
}
