package tile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/paulmach/orb/maptile"
)

// Source：原生瓦片资源的读取接口
// 约束：资源不存在时返回的错误需满足 errors.Is(err, fs.ErrNotExist)
type Source interface {
	Read(ctx context.Context, region string, t maptile.Tile, level int) ([]byte, error)
}

// FileSource：按区域目录读取解压后的瓦片文件
// 目录结构：<root>/<region>/<z>/<x>/<region>_z{z}x{x}y{y}e{level}.png
type FileSource struct {
	Root string
}

func NewFileSource(root string) *FileSource { return &FileSource{Root: root} }

// Path 瓦片文件路径
func (s *FileSource) Path(region string, t maptile.Tile, level int) string {
	name := fmt.Sprintf("%s_z%dx%dy%de%d.png", region, t.Z, t.X, t.Y, level)
	return filepath.Join(s.Root, region, strconv.Itoa(int(t.Z)), strconv.FormatUint(uint64(t.X), 10), name)
}

func (s *FileSource) Read(ctx context.Context, region string, t maptile.Tile, level int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if region == "" {
		return nil, os.ErrNotExist
	}
	return os.ReadFile(s.Path(region, t, level))
}
