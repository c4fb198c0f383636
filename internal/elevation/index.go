// 包 elevation：瓦片最大高程索引的二进制编解码与内存查找
//
// 文件格式：无头无尾的定长 8 字节记录 [Z:u16][X:u16][Y:u16][Elevation:u16]，每个字段小端序。
// 同一 (Z,X,Y) 至多一条记录；缺失表示高程未知或低于跟踪下限。
package elevation

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

// RecordSize 单条记录字节数
const RecordSize = 8

// Record 一条瓦片高程记录
type Record struct {
	Z, X, Y   uint16
	Elevation uint16
}

// DecodeError：索引文件不完整或不可读
// 约束：Offset 为出错记录的起始字节偏移；之前已解析的记录仍然有效
type DecodeError struct {
	Path   string
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("elevation: decode %s at offset %d: %v", e.Path, e.Offset, e.Err)
	}
	return fmt.Sprintf("elevation: decode at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Index：构建后只读的高程映射，可被任意 goroutine 并发读取
type Index struct {
	m map[uint64]uint16
}

// Key：将 (z,x,y) 打包为 64 位键，三者各占 16 位，互不冲突
func Key(z, x, y uint16) uint64 {
	return uint64(z)<<32 | uint64(x)<<16 | uint64(y)
}

// 文档注释：从流中解码索引
// 背景：按 8 字节定长记录顺序读取；重复键以后出现者为准。
// 返回：尾部不足 8 字节时同时返回已解析的索引与 *DecodeError（io.ErrUnexpectedEOF）；读错误同理。
func Decode(r io.Reader) (*Index, error) {
	ix := &Index{m: make(map[uint64]uint16)}
	br := bufio.NewReaderSize(r, 64*1024)
	var buf [RecordSize]byte
	var off int64
	for {
		n, err := io.ReadFull(br, buf[:])
		if err == io.EOF {
			return ix, nil
		}
		if err != nil {
			if n > 0 && errors.Is(err, io.ErrUnexpectedEOF) {
				return ix, &DecodeError{Offset: off, Err: io.ErrUnexpectedEOF}
			}
			return ix, &DecodeError{Offset: off, Err: err}
		}
		z := binary.LittleEndian.Uint16(buf[0:2])
		x := binary.LittleEndian.Uint16(buf[2:4])
		y := binary.LittleEndian.Uint16(buf[4:6])
		ix.m[Key(z, x, y)] = binary.LittleEndian.Uint16(buf[6:8])
		off += RecordSize
	}
}

// Load：打开并解码索引文件；语义同 Decode，错误中携带路径
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()
	ix, err := Decode(f)
	var de *DecodeError
	if errors.As(err, &de) {
		de.Path = path
	}
	return ix, err
}

// MaximumElevation：O(1) 查询瓦片最大高程；坐标超出 16 位范围视为缺失
func (ix *Index) MaximumElevation(z, x, y int) (uint16, bool) {
	if ix == nil || !fits16(z) || !fits16(x) || !fits16(y) {
		return 0, false
	}
	e, ok := ix.m[Key(uint16(z), uint16(x), uint16(y))]
	return e, ok
}

// Len 记录数
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.m)
}

// Records：按键升序导出全部记录，用于离线工具校验与重写
func (ix *Index) Records() []Record {
	out := make([]Record, 0, ix.Len())
	if ix == nil {
		return out
	}
	for k, e := range ix.m {
		out = append(out, Record{Z: uint16(k >> 32), X: uint16(k >> 16), Y: uint16(k), Elevation: e})
	}
	sortRecords(out)
	return out
}

// 文档注释：按规范格式写出记录
// 约束：调用方负责去重；写入顺序即记录顺序
func Encode(w io.Writer, recs []Record) error {
	bw := bufio.NewWriter(w)
	var buf [RecordSize]byte
	for _, r := range recs {
		binary.LittleEndian.PutUint16(buf[0:2], r.Z)
		binary.LittleEndian.PutUint16(buf[2:4], r.X)
		binary.LittleEndian.PutUint16(buf[4:6], r.Y)
		binary.LittleEndian.PutUint16(buf[6:8], r.Elevation)
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func fits16(v int) bool { return v >= 0 && v <= 0xFFFF }

func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		return Key(recs[i].Z, recs[i].X, recs[i].Y) < Key(recs[j].Z, recs[j].X, recs[j].Y)
	})
}
