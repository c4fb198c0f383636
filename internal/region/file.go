package region

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"
)

type fileRegion struct {
	ID          string     `yaml:"id"`
	Label       string     `yaml:"label"`
	Center      [2]float64 `yaml:"center"` // [lat, lon]
	Span        [2]float64 `yaml:"span"`   // [latDelta, lonDelta]
	PackageSize int64      `yaml:"package_size"`
}

type fileCatalog struct {
	Regions []fileRegion `yaml:"regions"`
}

// 文档注释：从 YAML 文件加载区域目录
// 约束：文件中的区域完全替换内置目录；center 与 span 均为 [纬度, 经度] 顺序
func LoadFile(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc fileCatalog
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return nil, fmt.Errorf("region: parse %s: %w", path, err)
	}
	rs := make([]Region, 0, len(fc.Regions))
	for _, f := range fc.Regions {
		if f.Span[0] <= 0 || f.Span[1] <= 0 {
			return nil, fmt.Errorf("region: %s: span must be positive", f.ID)
		}
		rs = append(rs, Region{
			ID:          f.ID,
			Label:       f.Label,
			Center:      orb.Point{f.Center[1], f.Center[0]},
			LatDelta:    f.Span[0],
			LonDelta:    f.Span[1],
			PackageSize: f.PackageSize,
		})
	}
	return NewCatalog(rs)
}

// Load：path 为空时返回内置目录
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
