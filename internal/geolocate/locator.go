// 包 geolocate：按访问者 IP 推荐最近的区域
package geolocate

import (
	"errors"
	"io"
	"net"
	"sealevel/internal/region"
	"strings"

	"github.com/oschwald/geoip2-golang"
	"github.com/paulmach/orb"
)

var (
	ErrBadIP      = errors.New("geolocate: invalid ip")
	ErrNoLocation = errors.New("geolocate: no location for ip")
	ErrNoRegion   = errors.New("geolocate: catalog is empty")
)

// CityReader：*geoip2.Reader 满足该接口
type CityReader interface {
	City(ip net.IP) (*geoip2.City, error)
}

// Suggestion：推荐结果，Distance 为到区域中心的距离（米），Inside 表示点落在区域范围内
type Suggestion struct {
	Region   region.Region `json:"-"`
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	Distance float64       `json:"distance_m"`
	Inside   bool          `json:"inside"`
	City     string        `json:"city,omitempty"`
	Country  string        `json:"country,omitempty"`
	Lat      float64       `json:"lat"`
	Lon      float64       `json:"lon"`
}

type Locator struct {
	db      CityReader
	closer  io.Closer
	catalog *region.Catalog
}

// Open：打开 GeoLite2/GeoIP2 City 数据库
func Open(path string, catalog *region.Catalog) (*Locator, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &Locator{db: r, closer: r, catalog: catalog}, nil
}

func New(db CityReader, catalog *region.Catalog) *Locator {
	return &Locator{db: db, catalog: catalog}
}

func (l *Locator) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// 文档注释：定位 IP 并选出最近区域
// 背景：优先选择包含该点的区域，其次按大圆距离最近。
// 异常：数据库无坐标（经纬度均为 0）视为 ErrNoLocation。
func (l *Locator) Locate(ip string) (Suggestion, error) {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return Suggestion{}, ErrBadIP
	}
	rec, err := l.db.City(parsed)
	if err != nil {
		return Suggestion{}, err
	}
	lat, lon := rec.Location.Latitude, rec.Location.Longitude
	if lat == 0 && lon == 0 {
		return Suggestion{}, ErrNoLocation
	}
	p := orb.Point{lon, lat}
	r, dist, ok := l.catalog.Nearest(p)
	if !ok {
		return Suggestion{}, ErrNoRegion
	}
	return Suggestion{
		Region:   r,
		ID:       r.ID,
		Label:    r.Label,
		Distance: dist,
		Inside:   r.Contains(p),
		City:     rec.City.Names["en"],
		Country:  rec.Country.IsoCode,
		Lat:      lat,
		Lon:      lon,
	}, nil
}
