package canvasrenderer

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/quire/layout"
	"github.com/ByLCY/quire/renderer"
)

const (
	defaultStrokeWidth    = 0.2
	defaultImageCacheSize = 64
	underlineOffset       = 0.4
)

var transparent = color.RGBA{0, 0, 0, 0}

// Renderer draws layout results via github.com/tdewolff/canvas.
// It is safe for concurrent use; every Encode call writes to its own PDF writer.
type Renderer struct {
	baseDir string
	logger  *slog.Logger

	// injected resources
	fontBlobs map[string][]byte // by unique name

	fontMu         sync.Mutex
	fontFamilies   map[string]*fontFamilyEntry
	fallbackFamily *canvas.FontFamily

	images *lru.Cache[string, decodedImage]
}

var (
	_ renderer.Encoder  = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

// Options configures the canvas renderer.
type Options struct {
	BaseDir        string
	Fonts          map[string][]byte // built-in fonts accessible via built-in:<name>
	ImageCacheSize int               // decoded images kept across renders, default 64
	Logger         *slog.Logger
}

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving assets.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with injected resources and optional baseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	size := opts.ImageCacheSize
	if size <= 0 {
		size = defaultImageCacheSize
	}
	cache, _ := lru.New[string, decodedImage](size)
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &Renderer{
		baseDir:      opts.BaseDir,
		logger:       logger,
		fontBlobs:    map[string][]byte{},
		fontFamilies: map[string]*fontFamilyEntry{},
		images:       cache,
	}
	for name, data := range opts.Fonts {
		if name == "" || len(data) == 0 {
			continue
		}
		r.fontBlobs[name] = data
	}
	return r
}

// Encode renders the result as PDF into w.
func (r *Renderer) Encode(ctx context.Context, result *layout.Result, _ layout.Request, w io.Writer) error {
	if result == nil {
		return fmt.Errorf("%w: 渲染结果为空", renderer.ErrEncoding)
	}
	if len(result.Pages) == 0 {
		return fmt.Errorf("%w: 缺少可渲染的页面", renderer.ErrEncoding)
	}

	writer := pdf.New(w, result.Pages[0].Width, result.Pages[0].Height, nil)
	applyMeta(writer, result.Meta)
	for i, page := range result.Pages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", renderer.ErrEncoding, err)
		}
		if i > 0 {
			writer.NewPage(page.Width, page.Height)
		}
		c := canvas.New(page.Width, page.Height)
		cctx := canvas.NewContext(c)
		cctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

		if err := r.drawPage(cctx, page, result.Resources); err != nil {
			return fmt.Errorf("%w: 第 %d 页: %w", renderer.ErrEncoding, i+1, err)
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("%w: 写入 PDF 失败: %w", renderer.ErrEncoding, err)
	}
	return nil
}

func applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	keywords := strings.Join(meta.Keywords, ", ")
	creator := meta.Creator
	if creator == "" {
		creator = meta.Producer
	}
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, creator)
}

// drawPage 按 Page 约定的顺序绘制：背景形状在前，文本与图片其次，自由绘制与注释最后。
func (r *Renderer) drawPage(ctx *canvas.Context, page layout.Page, resources layout.ResourceSet) error {
	r.drawRects(ctx, page.Rects)
	r.drawLines(ctx, page.Lines)
	for _, tb := range page.Texts {
		fontRes := resolveFontResource(tb.Font, resources.Fonts)
		if err := r.drawTextBox(ctx, tb, fontRes); err != nil {
			return err
		}
	}
	if err := r.drawImages(ctx, page.Images); err != nil {
		return err
	}
	if err := r.drawCanvases(ctx, page.Canvases); err != nil {
		return err
	}
	r.drawNotes(ctx, page.Notes)
	return nil
}

func (r *Renderer) drawTextBox(ctx *canvas.Context, tb layout.TextBox, fontRes layout.FontResource) error {
	// TextBox 的坐标/字号/行高均为 mm；创建字体面需要 pt，这里做一次 mm→pt。
	face, err := r.fontFace(fontRes, toPt(tb.FontSize), tb.Color)
	if err != nil {
		return err
	}

	lines := tb.Lines
	if len(lines) == 0 {
		lines = []layout.TextLine{{Content: tb.Content, Width: tb.Width, Height: tb.LineHeight}}
	}

	var textAlign canvas.TextAlign
	var anchorX float64
	switch strings.ToLower(tb.Align) {
	case "center":
		textAlign = canvas.Center
		anchorX = tb.X + tb.Width/2
	case "right", "end":
		textAlign = canvas.Right
		anchorX = tb.X + tb.Width
	default:
		textAlign = canvas.Left
		anchorX = tb.X
	}

	ascent := face.Metrics().Ascent
	cursorY := tb.Y
	for _, line := range lines {
		cursorY += line.GapBefore
		lineHeight := line.Height
		if lineHeight <= 0 {
			lineHeight = tb.FontSize
		}
		// 基线位置：行顶部加上字体上升部
		baseline := cursorY + ascent
		ctx.DrawText(anchorX, baseline, canvas.NewTextLine(face, line.Content, textAlign))
		if tb.Underline && line.Width > 0 {
			startX := tb.X
			switch textAlign {
			case canvas.Center:
				startX = anchorX - line.Width/2
			case canvas.Right:
				startX = anchorX - line.Width
			}
			r.drawLines(ctx, []layout.Line{{
				X1: startX, Y1: baseline + underlineOffset,
				X2: startX + line.Width, Y2: baseline + underlineOffset,
				Color: tb.Color, Width: tb.FontSize / 16,
			}})
		}
		cursorY += lineHeight
	}
	return nil
}

// drawLines 绘制直线列表（毫米单位）
func (r *Renderer) drawLines(ctx *canvas.Context, lines []layout.Line) {
	for _, ln := range lines {
		w := ln.Width
		if w <= 0 {
			w = defaultStrokeWidth
		}
		ctx.SetStrokeColor(colorFromLayout(ln.Color))
		ctx.SetStrokeWidth(w)
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		p.LineTo(ln.X2-ln.X1, ln.Y2-ln.Y1)
		ctx.DrawPath(ln.X1, ln.Y1, p)
	}
}

// drawRects 绘制背景与边框；未设置的填充或描边保持透明。
func (r *Renderer) drawRects(ctx *canvas.Context, rects []layout.Rect) {
	for _, rc := range rects {
		if rc.FillColor != nil {
			ctx.SetFillColor(colorFromLayout(*rc.FillColor))
		} else {
			ctx.SetFillColor(transparent)
		}
		if rc.StrokeColor != nil {
			w := rc.StrokeWidth
			if w <= 0 {
				w = defaultStrokeWidth
			}
			ctx.SetStrokeColor(colorFromLayout(*rc.StrokeColor))
			ctx.SetStrokeWidth(w)
		} else {
			ctx.SetStrokeColor(transparent)
			ctx.SetStrokeWidth(0)
		}
		ctx.DrawPath(rc.X, rc.Y, canvas.Rectangle(rc.Width, rc.Height))
	}
}

// drawNotes 将注释绘制为带细边框的色块。
func (r *Renderer) drawNotes(ctx *canvas.Context, notes []layout.NoteBox) {
	for _, n := range notes {
		ctx.SetFillColor(colorFromLayout(n.Color))
		ctx.SetStrokeColor(canvas.Hex("#808080"))
		ctx.SetStrokeWidth(defaultStrokeWidth / 2)
		ctx.DrawPath(n.X, n.Y, canvas.Rectangle(n.Width, n.Height))
	}
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }
