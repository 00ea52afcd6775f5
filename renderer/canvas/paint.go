package canvasrenderer

import (
	"fmt"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/quire/document"
	"github.com/ByLCY/quire/layout"
)

// painter 把 document.Painter 调用转换为 canvas 绘制，坐标相对 canvas 盒子左上角（mm）。
type painter struct {
	ctx    *canvas.Context
	ox, oy float64
}

var _ document.Painter = (*painter)(nil)

func (p *painter) FillColor(hex string)   { p.ctx.SetFillColor(canvas.Hex(hex)) }
func (p *painter) StrokeColor(hex string) { p.ctx.SetStrokeColor(canvas.Hex(hex)) }
func (p *painter) StrokeWidth(mm float64) { p.ctx.SetStrokeWidth(mm) }

func (p *painter) Line(x1, y1, x2, y2 float64) {
	path := &canvas.Path{}
	path.MoveTo(0, 0)
	path.LineTo(x2-x1, y2-y1)
	p.ctx.DrawPath(p.ox+x1, p.oy+y1, path)
}

func (p *painter) Rect(x, y, w, h float64) {
	p.ctx.DrawPath(p.ox+x, p.oy+y, canvas.Rectangle(w, h))
}

func (p *painter) Circle(cx, cy, r float64) {
	p.ctx.DrawPath(p.ox+cx-r, p.oy+cy-r, canvas.Circle(r))
}

// drawCanvases 调用 canvas 节点的绘制回调；回调返回的错误或 panic 会终止编码。
func (r *Renderer) drawCanvases(ctx *canvas.Context, boxes []layout.CanvasBox) error {
	for _, box := range boxes {
		if box.Paint == nil {
			continue
		}
		ctx.SetFillColor(transparent)
		ctx.SetStrokeColor(canvas.Hex("#000000"))
		ctx.SetStrokeWidth(defaultStrokeWidth)
		if err := paintSafely(box, &painter{ctx: ctx, ox: box.X, oy: box.Y}); err != nil {
			return fmt.Errorf("canvas 节点 %d 绘制失败: %w", box.Node, err)
		}
	}
	return nil
}

func paintSafely(box layout.CanvasBox, p document.Painter) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return box.Paint(p, box.Width, box.Height)
}
