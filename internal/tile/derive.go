package tile

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/paulmach/orb/maptile"
	"golang.org/x/image/draw"
)

var (
	ErrNotDescendant = errors.New("tile: target is not inside ancestor")
	ErrEmptyAncestor = errors.New("tile: empty ancestor image")
)

// DerivationError：无法由祖先瓦片派生目标瓦片
type DerivationError struct {
	Ancestor maptile.Tile
	Target   maptile.Tile
	Err      error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("tile: derive %d/%d/%d from %d/%d/%d: %v",
		e.Target.Z, e.Target.X, e.Target.Y, e.Ancestor.Z, e.Ancestor.X, e.Ancestor.Y, e.Err)
}

func (e *DerivationError) Unwrap() error { return e.Err }

// AncestorAt：target 在 z 级的祖先瓦片；z 不小于 target.Z 时原样返回
func AncestorAt(target maptile.Tile, z maptile.Zoom) maptile.Tile {
	if z >= target.Z {
		return target
	}
	dz := target.Z - z
	return maptile.Tile{X: target.X >> dz, Y: target.Y >> dz, Z: z}
}

// 文档注释：由低级别祖先瓦片裁剪放大得到高级别瓦片
// 背景：祖先覆盖 scale×scale 个目标瓦片（scale = 2^(target.Z-ancestor.Z)）；按目标在网格中的偏移裁剪 1/scale 边长的子区域，再以最近邻缩放到 edge×edge。
// 约束：纯函数，不做 I/O；目标不在祖先内或祖先图像为空时返回 *DerivationError，不产出部分图像。
func Derive(src image.Image, ancestor, target maptile.Tile, edge int) (*image.RGBA, error) {
	fail := func(err error) (*image.RGBA, error) {
		return nil, &DerivationError{Ancestor: ancestor, Target: target, Err: err}
	}
	if src == nil {
		return fail(errors.New("tile: nil ancestor image"))
	}
	if edge <= 0 {
		edge = Size
	}
	if target.Z < ancestor.Z || target.Z-ancestor.Z > 30 || AncestorAt(target, ancestor.Z) != ancestor {
		return fail(ErrNotDescendant)
	}
	scale := 1 << (target.Z - ancestor.Z)
	ox := int(target.X) - int(ancestor.X)*scale
	oy := int(target.Y) - int(ancestor.Y)*scale

	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return fail(ErrEmptyAncestor)
	}
	// 缩放差超过像素边长时子区域不足 1px，取所在像素整体放大
	x0, y0 := ox*b.Dx()/scale, oy*b.Dy()/scale
	cw, ch := max(b.Dx()/scale, 1), max(b.Dy()/scale, 1)
	crop := image.Rect(b.Min.X+x0, b.Min.Y+y0, b.Min.X+x0+cw, b.Min.Y+y0+ch)

	dst := image.NewRGBA(image.Rect(0, 0, edge, edge))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	return dst, nil
}

// DerivePNG：PNG 字节进、PNG 字节出的 Derive；解码失败同样返回 *DerivationError
func DerivePNG(data []byte, ancestor, target maptile.Tile, edge int) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DerivationError{Ancestor: ancestor, Target: target, Err: err}
	}
	img, err := Derive(src, ancestor, target, edge)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &DerivationError{Ancestor: ancestor, Target: target, Err: err}
	}
	return buf.Bytes(), nil
}
