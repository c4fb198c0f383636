package main

import (
	"bytes"
	"os"
	"path/filepath"
	"sealevel/internal/elevation"
	"sealevel/internal/logger"

	"github.com/joho/godotenv"
)

// 文档注释：由 z,x,y,elevation 文本生成区域高程索引
// 背景：离线预处理 DEM 得到每个瓦片的最大高程，转换为定长二进制索引随区域包发布。
// 用法：INDEX_SRC=tiles.csv INDEX_OUT=data/tiles/<region>/<region>_solid.dat index-build
// 约束：写入临时文件并回读校验后再 rename，失败不会覆盖已有索引。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	src := os.Getenv("INDEX_SRC")
	out := os.Getenv("INDEX_OUT")
	if len(os.Args) > 2 {
		src, out = os.Args[1], os.Args[2]
	}
	if src == "" || out == "" {
		l.Error("index_build_args_missing", "usage", "index-build <src.csv> <out.dat>")
		os.Exit(2)
	}
	in, err := os.Open(src)
	if err != nil {
		l.Error("index_src_open_error", "path", src, "err", err)
		os.Exit(1)
	}
	defer in.Close()
	recs, skipped, err := elevation.ParseCSV(in)
	if err != nil {
		l.Error("index_src_parse_error", "path", src, "err", err)
		os.Exit(1)
	}
	if err := elevation.Validate(recs); err != nil {
		l.Error("index_src_invalid", "err", err)
		os.Exit(1)
	}
	if len(recs) == 0 {
		l.Error("index_src_empty", "path", src, "skipped", skipped)
		os.Exit(1)
	}
	l.Info("index_src_parsed", "records", len(recs), "skipped", skipped)

	var buf bytes.Buffer
	if err := elevation.Encode(&buf, recs); err != nil {
		l.Error("index_encode_error", "err", err)
		os.Exit(1)
	}
	ix, err := elevation.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil || ix.Len() != len(recs) {
		l.Error("index_verify_error", "records", ix.Len(), "want", len(recs), "err", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		l.Error("index_out_dir_error", "err", err)
		os.Exit(1)
	}
	tmp := out + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		l.Error("index_write_error", "path", tmp, "err", err)
		os.Exit(1)
	}
	if err := os.Rename(tmp, out); err != nil {
		l.Error("index_rename_error", "path", out, "err", err)
		os.Exit(1)
	}
	l.Info("index_build_done", "path", out, "records", len(recs), "bytes", buf.Len())
}
