package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sealevel/internal/metrics"
	"sealevel/internal/region"
	"time"
)

// ProgressFunc：已完成字节数与总字节数；total 未知时为 0
type ProgressFunc func(done, total int64)

// Fetcher：把区域包写入 dst；实现需响应 ctx 取消
type Fetcher interface {
	Fetch(ctx context.Context, r region.Region, dst io.Writer, progress ProgressFunc) error
}

// PackageName 区域包文件名
func PackageName(id string) string { return id + ".zip" }

// 文档注释：HTTP 区域包获取
// 背景：GET {BaseURL}/{id}.zip；缺少 Content-Length 时以目录中的包大小估算进度。
// 异常：非 200 状态、网络错误直接返回，不做重试（由调用方重新选择区域）。
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{BaseURL: baseURL, Client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, r region.Region, dst io.Writer, progress ProgressFunc) error {
	url := f.BaseURL + "/" + PackageName(r.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	c := f.Client
	if c == nil {
		c = http.DefaultClient
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	total := resp.ContentLength
	if total <= 0 {
		total = r.PackageSize
	}
	return copyProgress(ctx, dst, resp.Body, total, progress)
}

// DirFetcher：从本地目录读取 {id}.zip，用于离线部署与测试
type DirFetcher struct {
	Dir string
}

func (f *DirFetcher) Fetch(ctx context.Context, r region.Region, dst io.Writer, progress ProgressFunc) error {
	fh, err := os.Open(filepath.Join(f.Dir, PackageName(r.ID)))
	if err != nil {
		return err
	}
	defer fh.Close()
	var total int64
	if st, err := fh.Stat(); err == nil {
		total = st.Size()
	}
	return copyProgress(ctx, dst, fh, total, progress)
}

const progressStep = 64 << 10

// copyProgress：分块复制，每块检查取消并按 progressStep 节流上报
func copyProgress(ctx context.Context, dst io.Writer, src io.Reader, total int64, progress ProgressFunc) error {
	buf := make([]byte, 32<<10)
	var done, reported int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
			done += int64(n)
			metrics.DownloadBytesTotal.Add(float64(n))
			if total > 0 && done > total {
				total = done
			}
			if progress != nil && done-reported >= progressStep {
				progress(done, total)
				reported = done
			}
		}
		if rerr == io.EOF {
			if progress != nil {
				if total < done {
					total = done
				}
				progress(done, total)
			}
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}
