package canvasrenderer

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/quire/layout"
)

type decodedImage struct {
	img image.Image
}

func (r *Renderer) drawImages(ctx *canvas.Context, images []layout.ImageBox) error {
	for _, box := range images {
		img, err := r.loadImage(box)
		if err != nil {
			return err
		}
		px := float64(img.Bounds().Dx())
		py := float64(img.Bounds().Dy())
		if px <= 0 || py <= 0 || box.Width <= 0 {
			continue
		}
		// 图片只能等比缩放：默认按宽度适配，contain 时取能放进盒子的分辨率
		dpmm := px / box.Width
		if strings.EqualFold(box.Fit, "contain") && box.Height > 0 {
			dpmm = math.Max(dpmm, py/box.Height)
		}
		ctx.DrawImage(box.X, box.Y, img, canvas.DPMM(dpmm))
	}
	return nil
}

// loadImage 解码图片并放入 LRU 缓存，相同路径或相同内容只解码一次。
func (r *Renderer) loadImage(box layout.ImageBox) (image.Image, error) {
	var key string
	if len(box.Data) > 0 {
		h := fnv.New64a()
		h.Write(box.Data)
		key = fmt.Sprintf("data:%x:%d", h.Sum64(), len(box.Data))
	} else {
		if box.Path == "" {
			return nil, fmt.Errorf("图片缺少数据或路径")
		}
		path := box.Path
		if !filepath.IsAbs(path) {
			if r.baseDir == "" {
				return nil, fmt.Errorf("未指定资源目录时不允许直接使用路径：%s", box.Path)
			}
			path = filepath.Join(r.baseDir, path)
		}
		key = "path:" + path
		box.Path = path
	}
	if cached, ok := r.images.Get(key); ok {
		return cached.img, nil
	}

	var (
		img image.Image
		err error
	)
	if len(box.Data) > 0 {
		img, _, err = image.Decode(bytes.NewReader(box.Data))
	} else {
		var file *os.File
		file, err = os.Open(box.Path)
		if err != nil {
			return nil, fmt.Errorf("读取图片 %s 失败: %w", box.Path, err)
		}
		img, _, err = image.Decode(file)
		file.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("解码图片失败: %w", err)
	}
	r.images.Add(key, decodedImage{img: img})
	return img, nil
}
