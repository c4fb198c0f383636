package elevation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// 文档注释：解析离线生成的 z,x,y,elevation 文本
// 背景：首行可为表头；空行与 # 注释跳过；重复瓦片取最大高程。
// 返回：按键升序的记录与被跳过的非法行数；字段超出 16 位视为非法行。
func ParseCSV(r io.Reader) ([]Record, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	best := make(map[uint64]Record)
	skipped := 0
	line := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, err
		}
		line++
		if len(row) < 4 {
			skipped++
			continue
		}
		var v [4]uint16
		ok := true
		for i := 0; i < 4; i++ {
			n, err := strconv.ParseUint(strings.TrimSpace(row[i]), 10, 16)
			if err != nil {
				ok = false
				break
			}
			v[i] = uint16(n)
		}
		if !ok {
			// 表头
			if line == 1 {
				continue
			}
			skipped++
			continue
		}
		rec := Record{Z: v[0], X: v[1], Y: v[2], Elevation: v[3]}
		k := Key(rec.Z, rec.X, rec.Y)
		if prev, dup := best[k]; !dup || rec.Elevation > prev.Elevation {
			best[k] = rec
		}
	}
	out := make([]Record, 0, len(best))
	for _, rec := range best {
		out = append(out, rec)
	}
	sortRecords(out)
	return out, skipped, nil
}

// Validate：检查记录坐标是否落在各自级别的瓦片范围内
func Validate(recs []Record) error {
	for _, r := range recs {
		if r.Z > 16 {
			return fmt.Errorf("elevation: zoom %d out of range", r.Z)
		}
		n := uint32(1) << r.Z
		if uint32(r.X) >= n || uint32(r.Y) >= n {
			return fmt.Errorf("elevation: tile %d/%d/%d out of range", r.Z, r.X, r.Y)
		}
	}
	return nil
}
