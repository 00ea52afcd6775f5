package layout

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/ByLCY/quire/document"
)

// pxToMm 按 96 DPI 将像素换算为毫米。
const pxToMm = 25.4 / 96

// intrinsicSize 读取图片头部得到像素尺寸并换算为 mm，返回解析后的路径。
func (b *builder) intrinsicSize(props document.ImageProps) (string, float64, float64, error) {
	var (
		r    io.Reader
		path string
	)
	switch {
	case len(props.Data) > 0:
		r = bytes.NewReader(props.Data)
	case strings.TrimSpace(props.Src) != "":
		path = props.Src
		if !filepath.IsAbs(path) {
			if b.baseDir == "" {
				return "", 0, 0, fmt.Errorf("%w: 未指定资源目录时不允许直接使用路径：%s", ErrLayout, props.Src)
			}
			path = filepath.Join(b.baseDir, path)
		}
		file, err := os.Open(path)
		if err != nil {
			return "", 0, 0, fmt.Errorf("%w: 读取图片 %s 失败: %w", ErrLayout, props.Src, err)
		}
		defer file.Close()
		r = file
	default:
		return "", 0, 0, fmt.Errorf("%w: image 缺少 src", ErrLayout)
	}

	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: 解码图片 %s 失败: %w", ErrLayout, props.Src, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", 0, 0, fmt.Errorf("%w: 图片 %s 尺寸无效", ErrLayout, props.Src)
	}
	return path, float64(cfg.Width) * pxToMm, float64(cfg.Height) * pxToMm, nil
}
