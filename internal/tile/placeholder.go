// 包 tile：海平面覆盖瓦片的解析与派生
package tile

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
)

// Size 标准瓦片边长（像素）
const Size = 256

// SolidColor：完全淹没瓦片的覆盖色（半透明浅蓝）
var SolidColor = color.NRGBA{R: 0x5A, G: 0xC8, B: 0xFA, A: 0x80}

var (
	placeholderOnce sync.Once
	solidPNG        []byte
	clearPNG        []byte
)

func buildPlaceholders() {
	solidPNG = uniformPNG(SolidColor)
	clearPNG = uniformPNG(color.NRGBA{})
}

// Solid：完全淹没占位图，全进程共享，调用方不得修改
func Solid() []byte {
	placeholderOnce.Do(buildPlaceholders)
	return solidPNG
}

// Clear：完全透明占位图（高于阈值或无数据），全进程共享，调用方不得修改
func Clear() []byte {
	placeholderOnce.Do(buildPlaceholders)
	return clearPNG
}

func uniformPNG(c color.NRGBA) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, Size, Size))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
