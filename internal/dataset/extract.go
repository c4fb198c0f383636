package dataset

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// 文档注释：把区域包解压到 dest
// 背景：条目名可带或不带 "<region>/" 前缀；已存在且大小一致的文件跳过，其余写入临时文件后 rename。
// 返回：全部条目均已存在时返回 ErrAlreadyExtracted（匹配 fs.ErrExist），调用方视为成功；
// 条目路径逃逸时返回 ErrUnsafePath，且不写入该条目。
func Extract(ctx context.Context, archive, dest, regionID string, progress ProgressFunc) error {
	zr, err := zip.OpenReader(archive)
	if errors.Is(err, zip.ErrInsecurePath) {
		zr.Close()
		return fmt.Errorf("%w: %v", ErrUnsafePath, err)
	}
	if err != nil {
		return err
	}
	defer zr.Close()

	var total int64
	files := 0
	for _, f := range zr.File {
		if !f.FileInfo().IsDir() {
			total += int64(f.UncompressedSize64)
			files++
		}
	}
	if files == 0 {
		return ErrEmptyPackage
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	var done int64
	skipped := 0
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := entryPath(f.Name, regionID)
		if err != nil {
			return err
		}
		if rel == "" {
			continue
		}
		target := filepath.Join(dest, rel)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		size := int64(f.UncompressedSize64)
		if st, err := os.Stat(target); err == nil && st.Mode().IsRegular() && st.Size() == size {
			skipped++
		} else if err := writeEntry(f, target); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		done += size
		if progress != nil {
			progress(done, total)
		}
	}
	if skipped == files {
		return ErrAlreadyExtracted
	}
	return nil
}

// entryPath：规范化条目名并去掉区域前缀；返回空串表示条目即区域根目录
func entryPath(name, regionID string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	if regionID != "" {
		if clean == regionID {
			return "", nil
		}
		clean = strings.TrimPrefix(clean, regionID+"/")
	}
	if clean == "." {
		return "", nil
	}
	return filepath.FromSlash(clean), nil
}

func writeEntry(f *zip.File, target string) (err error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	tmp := target + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()
	if _, err = io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	err = os.Rename(tmp, target)
	if err != nil && errors.Is(err, os.ErrExist) {
		_ = os.Remove(target)
		err = os.Rename(tmp, target)
	}
	return err
}
