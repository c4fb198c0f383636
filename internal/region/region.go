// 包 region：区域数据集描述（构建期定义，运行期只读）
package region

import (
	"errors"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// DefaultID 首次启动且无持久化选择时使用的区域
const DefaultID = "newYorkCitySRTM"

// DefaultPackageSize：未声明包大小时的估计值，仅用于下载进度在缺少 Content-Length 时的分母
const DefaultPackageSize int64 = 30 << 20

var ErrUnknown = errors.New("region: unknown region")

// Region：一个可下载的区域数据集
// 约束：值类型，构建后不修改；Center 为 orb.Point{lon, lat}
type Region struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Center      orb.Point `json:"center"`
	LatDelta    float64   `json:"lat_delta"`
	LonDelta    float64   `json:"lon_delta"`
	PackageSize int64     `json:"package_size"`
}

// Bound：中心加跨度换算的经纬度包围盒
func (r Region) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{r.Center.Lon() - r.LonDelta/2, r.Center.Lat() - r.LatDelta/2},
		Max: orb.Point{r.Center.Lon() + r.LonDelta/2, r.Center.Lat() + r.LatDelta/2},
	}
}

// Contains 点是否落在区域包围盒内
func (r Region) Contains(p orb.Point) bool { return r.Bound().Contains(p) }

// Catalog：按 ID 索引的区域集合，保持声明顺序
type Catalog struct {
	list []Region
	byID map[string]int
}

func NewCatalog(rs []Region) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(rs))}
	for _, r := range rs {
		if r.ID == "" {
			return nil, errors.New("region: empty id")
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, errors.New("region: duplicate id " + r.ID)
		}
		if r.Label == "" {
			r.Label = Humanize(r.ID)
		}
		if r.PackageSize <= 0 {
			r.PackageSize = DefaultPackageSize
		}
		c.byID[r.ID] = len(c.list)
		c.list = append(c.list, r)
	}
	return c, nil
}

func (c *Catalog) Get(id string) (Region, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Region{}, false
	}
	return c.list[i], true
}

// All 返回副本
func (c *Catalog) All() []Region {
	out := make([]Region, len(c.list))
	copy(out, c.list)
	return out
}

func (c *Catalog) Len() int { return len(c.list) }

// 文档注释：最近区域
// 背景：优先返回包含该点的区域（多个时取中心最近者），否则按大圆距离取中心最近的区域。
// 返回：区域、到中心的距离（米）；目录为空时 ok 为 false。
func (c *Catalog) Nearest(p orb.Point) (Region, float64, bool) {
	if len(c.list) == 0 {
		return Region{}, 0, false
	}
	type cand struct {
		r      Region
		d      float64
		inside bool
	}
	cs := make([]cand, 0, len(c.list))
	for _, r := range c.list {
		cs = append(cs, cand{r: r, d: geo.Distance(p, r.Center), inside: r.Contains(p)})
	}
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].inside != cs[j].inside {
			return cs[i].inside
		}
		return cs[i].d < cs[j].d
	})
	if math.IsNaN(cs[0].d) {
		return Region{}, 0, false
	}
	return cs[0].r, cs[0].d, true
}

// Humanize：newYorkCitySRTM -> New York City
func Humanize(id string) string {
	id = strings.TrimSuffix(id, "SRTM")
	var b strings.Builder
	for i, r := range id {
		if i == 0 {
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		if unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
