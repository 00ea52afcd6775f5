package layout

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ByLCY/quire/document"
)

const (
	defaultPageSize         = "A4"
	defaultFontSizePt       = 12.0
	defaultLineHeightFactor = 1.2
	defaultCanvasHeight     = 40.0
	noteSize                = 5.0
)

var pagePresets = map[string][2]float64{
	"A3":     {297, 420},
	"A4":     {210, 297},
	"A5":     {148, 210},
	"LETTER": {215.9, 279.4},
	"LEGAL":  {215.9, 355.6},
}

var (
	defaultTextColor = Color{R: 0, G: 0, B: 0}
	defaultLinkColor = Color{R: 6, G: 69, B: 173}
	defaultNoteColor = Color{R: 255, G: 204, B: 0}
)

// BuildOptions 配置布局阶段所需的依赖，例如排版后端。
type BuildOptions struct {
	Typesetter Typesetter
	BaseDir    string
}

// Build 根据节点树快照生成页面与逐节点几何信息。root 必须是快照中的 Root 节点。
func Build(ctx context.Context, root *document.Node, req Request, opts BuildOptions) (*Result, error) {
	if opts.Typesetter == nil {
		return nil, fmt.Errorf("%w: 缺少排版后端 Typesetter", ErrLayout)
	}
	if root == nil {
		return nil, fmt.Errorf("%w: %w", ErrLayout, ErrNoDocument)
	}
	var doc *document.Node
	for _, child := range root.Children() {
		if child.Kind() == document.KindDocument {
			doc = child
			break
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %w", ErrLayout, ErrNoDocument)
	}
	props, _ := doc.Props().(document.DocumentProps)

	b := &builder{
		ctx:     ctx,
		ts:      opts.Typesetter,
		baseDir: opts.BaseDir,
		debug:   req.Debug,
		fonts:   collectFonts(props),
	}
	b.result = &Result{
		Nodes:     map[document.NodeID]document.Geometry{},
		Resources: ResourceSet{Fonts: b.fonts},
		Meta:      collectMeta(props),
	}

	for _, child := range doc.Children() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if child.Kind() != document.KindPage {
			return nil, fmt.Errorf("%w: document 下只能包含 page，发现 %s", ErrLayout, child.Kind())
		}
		if err := b.buildPage(child, req); err != nil {
			return nil, err
		}
	}
	if len(b.result.Pages) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrLayout, ErrNoPage)
	}

	first := b.result.Pages[0]
	b.record(doc, document.Geometry{Page: 0, Width: first.Width, Height: first.Height})
	return b.result, nil
}

type builder struct {
	ctx     context.Context
	ts      Typesetter
	baseDir string
	debug   DebugOptions
	fonts   map[string]FontResource
	result  *Result
}

// box 是测量阶段的中间结果，坐标相对父盒子（border-box 左上角）。
type box struct {
	node     *document.Node
	x, y     float64
	w, h     float64
	margin   Edges
	content  string
	href     string
	fill     *Color
	stroke   *Color
	strokeW  float64
	text     *TextBox
	image    *ImageBox
	canvas   *CanvasBox
	note     *NoteBox
	inline   []inlineNode
	children []*box
}

// inlineNode 是嵌套在 text 内部、与父文本共享同一盒子的 text/link 节点。
type inlineNode struct {
	node    *document.Node
	content string
	href    string
}

func (b *box) outerW() float64 { return b.w + b.margin.Horizontal() }
func (b *box) outerH() float64 { return b.h + b.margin.Vertical() }

// textStyle 为可继承的文本样式，子节点的非空值覆盖父节点。
type textStyle struct {
	font, size, lineHeight, color, align, wrap string
}

func (t textStyle) merge(s document.Style) textStyle {
	pick := func(own, inherited string) string {
		if strings.TrimSpace(own) != "" {
			return own
		}
		return inherited
	}
	return textStyle{
		font:       pick(s.FontFamily, t.font),
		size:       pick(s.FontSize, t.size),
		lineHeight: pick(s.LineHeight, t.lineHeight),
		color:      pick(s.Color, t.color),
		align:      pick(s.TextAlign, t.align),
		wrap:       pick(s.Wrap, t.wrap),
	}
}

func (b *builder) buildPage(node *document.Node, req Request) error {
	props, _ := node.Props().(document.PageProps)
	width, height, err := resolvePageSize(props.Size, props.Orientation, req)
	if err != nil {
		return err
	}
	edges := ParseEdges(props.Style.Padding, width)
	margin := Margin{Top: edges.Top, Right: edges.Right, Bottom: edges.Bottom, Left: edges.Left}
	contentW := width - edges.Horizontal()
	gap := resolveDimension(props.Style.Gap, contentW)
	wrap := props.Wrap == nil || *props.Wrap
	bg := parseColorPtr(props.Style.BackgroundColor)
	inherited := textStyle{}.merge(props.Style)

	first := b.newPage(width, height, margin, bg)
	cursor := margin.Top
	placed := 0
	for _, child := range node.Children() {
		cb, err := b.measure(child, contentW, inherited)
		if err != nil {
			return err
		}
		// 当前页放不下且当前页已有内容时另起一页（单个盒子超过整页高度时不再拆分）
		if wrap && placed > 0 && cursor+cb.outerH() > height-margin.Bottom {
			b.newPage(width, height, margin, bg)
			cursor = margin.Top
			placed = 0
		}
		b.emit(cb, len(b.result.Pages)-1, margin.Left+cb.margin.Left, cursor+cb.margin.Top)
		cursor += cb.outerH() + gap
		placed++
	}

	b.record(node, document.Geometry{Page: first, Width: width, Height: height})
	return nil
}

func (b *builder) newPage(width, height float64, margin Margin, bg *Color) int {
	page := Page{Width: width, Height: height, Margin: margin}
	if bg != nil {
		page.Rects = append(page.Rects, Rect{Width: width, Height: height, FillColor: bg})
	}
	b.result.Pages = append(b.result.Pages, page)
	return len(b.result.Pages) - 1
}

// measure 计算节点及其子树的尺寸，avail 为父内容区可用宽度（mm）。
func (b *builder) measure(n *document.Node, avail float64, inherited textStyle) (*box, error) {
	if err := b.ctx.Err(); err != nil {
		return nil, err
	}
	st := document.StyleOf(n.Props())
	ts := inherited.merge(st)
	bx := &box{node: n, margin: ParseEdges(st.Margin, avail)}

	inner := math.Max(avail-bx.margin.Horizontal(), 0)
	width := inner
	if w := resolveDimension(st.Width, avail); w > 0 {
		width = w
	}
	pad := ParseEdges(st.Padding, avail)
	border := ParseRawLengthStr(st.BorderWidth).ToMM()
	bx.fill = parseColorPtr(st.BackgroundColor)
	if border > 0 {
		c := resolveColor(st.BorderColor, defaultTextColor)
		bx.stroke = &c
		bx.strokeW = border
	}

	var err error
	switch n.Kind() {
	case document.KindView:
		err = b.layoutView(bx, st, width, pad, border, ts)
	case document.KindText, document.KindLink:
		err = b.layoutText(bx, width, pad, border, ts)
	case document.KindImage:
		err = b.layoutImage(bx, st, avail, inner)
	case document.KindCanvas:
		props, _ := n.Props().(document.CanvasProps)
		bx.w = width
		bx.h = defaultCanvasHeight
		bx.canvas = &CanvasBox{Node: n.ID(), Paint: props.Paint}
	case document.KindNote:
		props, _ := n.Props().(document.NoteProps)
		bx.w = noteSize
		if w := resolveDimension(st.Width, avail); w > 0 {
			bx.w = w
		}
		bx.h = noteSize
		bx.content = props.Content
		bx.note = &NoteBox{Content: props.Content, Color: resolveColor(st.BackgroundColor, defaultNoteColor)}
		bx.fill = nil
	default:
		err = fmt.Errorf("%w: %s 不能出现在 page 内部", ErrLayout, n.Kind())
	}
	if err != nil {
		return nil, err
	}

	if h := resolveDimension(st.Height, 0); h > 0 {
		bx.h = h
	}
	if bx.canvas != nil {
		bx.canvas.Width, bx.canvas.Height = bx.w, bx.h
	}
	if bx.note != nil {
		bx.note.Width, bx.note.Height = bx.w, bx.h
	}
	return bx, nil
}

func (b *builder) layoutView(bx *box, st document.Style, width float64, pad Edges, border float64, ts textStyle) error {
	contentW := math.Max(width-pad.Horizontal()-2*border, 0)
	ox := border + pad.Left
	oy := border + pad.Top
	gap := resolveDimension(st.Gap, contentW)
	children := bx.node.Children()
	measured := make([]*box, len(children))

	contentH := 0.0
	if strings.EqualFold(strings.TrimSpace(st.Direction), "row") {
		// 声明了宽度的子节点先测量，其余子节点平分剩余宽度
		fixed := 0.0
		flex := 0
		for i, c := range children {
			if strings.TrimSpace(document.StyleOf(c.Props()).Width) == "" {
				flex++
				continue
			}
			cb, err := b.measure(c, contentW, ts)
			if err != nil {
				return err
			}
			measured[i] = cb
			fixed += cb.outerW()
		}
		share := 0.0
		if flex > 0 {
			remain := contentW - fixed - gap*float64(len(children)-1)
			share = math.Max(remain/float64(flex), 0)
		}
		x := ox
		for i, c := range children {
			cb := measured[i]
			if cb == nil {
				var err error
				if cb, err = b.measure(c, share, ts); err != nil {
					return err
				}
				measured[i] = cb
			}
			cb.x = x + cb.margin.Left
			cb.y = oy + cb.margin.Top
			x += cb.outerW() + gap
			contentH = math.Max(contentH, cb.outerH())
		}
	} else {
		y := oy
		for i, c := range children {
			cb, err := b.measure(c, contentW, ts)
			if err != nil {
				return err
			}
			cb.x = ox + cb.margin.Left
			cb.y = y + cb.margin.Top
			y += cb.outerH() + gap
			measured[i] = cb
		}
		if len(children) > 0 {
			contentH = y - oy - gap
		}
	}

	bx.children = measured
	bx.w = width
	bx.h = contentH + pad.Vertical() + 2*border
	return nil
}

func (b *builder) layoutText(bx *box, width float64, pad Edges, border float64, ts textStyle) error {
	content, inline, err := collectInline(bx.node)
	if err != nil {
		return err
	}
	isLink := bx.node.Kind() == document.KindLink

	sizeLen := ParseRawLengthStr(ts.size)
	if sizeLen.Value <= 0 || sizeLen.Unit == UnitPercent {
		sizeLen = Length{Value: defaultFontSizePt, Unit: UnitPT}
	}
	fontSize := sizeLen.ToMM()
	lhSpec := ParseLineHeight(ts.lineHeight)
	lineHeight := lhSpec.Resolve(sizeLen, UnitMM)
	colorDefault := defaultTextColor
	if isLink {
		colorDefault = defaultLinkColor
	}
	font := b.resolveFont(ts.font)
	wrap := normalizeWrap(ts.wrap)
	textW := math.Max(width-pad.Horizontal()-2*border, 0)

	lines, err := b.ts.LayoutLines(content, textW, font, fontSize, lineHeight, wrap)
	if err != nil {
		return fmt.Errorf("%w: 文本排版失败: %w", ErrLayout, err)
	}
	total := normalizeLines(&lines, fontSize, lineHeight)

	tb := &TextBox{
		Content:    content,
		X:          border + pad.Left,
		Y:          border + pad.Top,
		Width:      textW,
		LineHeight: lineHeight,
		Font:       font.Name,
		FontSize:   fontSize,
		Color:      resolveColor(ts.color, colorDefault),
		Lines:      lines,
		Height:     total,
		Align:      normalizeAlign(ts.align),
		Wrap:       wrap,
		Underline:  isLink,
	}
	if b.debug.RawUnits {
		tb.Debug = &TextBoxDebug{RawUnits: &RawUnits{
			FontSize:   &RawLengthJSON{Value: sizeLen.Value, Unit: UnitToString(sizeLen.Unit)},
			LineHeight: lhSpec.raw(),
		}}
	}

	bx.text = tb
	bx.content = content
	bx.inline = inline
	if link, ok := bx.node.Props().(document.LinkProps); ok {
		bx.href = link.Href
	}
	bx.w = width
	bx.h = total + pad.Vertical() + 2*border
	return nil
}

// collectInline 拼接 text/link 自身内容与嵌套 text/link 子节点的内容。
func collectInline(n *document.Node) (string, []inlineNode, error) {
	var sb strings.Builder
	var inline []inlineNode
	var walk func(*document.Node, bool) error
	walk = func(cur *document.Node, nested bool) error {
		var own, href string
		switch p := cur.Props().(type) {
		case document.TextProps:
			own = p.Content
		case document.LinkProps:
			own, href = p.Content, p.Href
		default:
			return fmt.Errorf("%w: text 内只能包含 text/link，发现 %s", ErrLayout, cur.Kind())
		}
		start := sb.Len()
		sb.WriteString(own)
		for _, c := range cur.Children() {
			if err := walk(c, true); err != nil {
				return err
			}
		}
		if nested {
			inline = append(inline, inlineNode{node: cur, content: sb.String()[start:], href: href})
		}
		return nil
	}
	if err := walk(n, false); err != nil {
		return "", nil, err
	}
	return sb.String(), inline, nil
}

// normalizeLines 补齐行高与行间距，返回文本总高度（mm）。
func normalizeLines(lines *[]TextLine, fontSize, lineHeight float64) float64 {
	if len(*lines) == 0 {
		*lines = []TextLine{{Content: "", Height: fontSize}}
	}
	leading := math.Max(lineHeight-fontSize, 0)
	total := 0.0
	for i := range *lines {
		ln := &(*lines)[i]
		if ln.Height <= 0 {
			ln.Height = fontSize
		}
		if i == 0 {
			ln.GapBefore = 0
		} else if ln.GapBefore <= 0 {
			ln.GapBefore = leading
		}
		total += ln.GapBefore + ln.Height
	}
	return total
}

func (b *builder) layoutImage(bx *box, st document.Style, avail, inner float64) error {
	props, _ := bx.node.Props().(document.ImageProps)
	src, iw, ih, err := b.intrinsicSize(props)
	if err != nil {
		return err
	}
	w := resolveDimension(st.Width, avail)
	h := resolveDimension(st.Height, 0)
	switch {
	case w > 0 && h > 0:
	case w > 0:
		h = w * ih / iw
	case h > 0:
		w = h * iw / ih
	default:
		w, h = iw, ih
	}
	if inner > 0 && w > inner {
		h = h * inner / w
		w = inner
	}
	bx.w, bx.h = w, h
	bx.content = props.Src
	bx.image = &ImageBox{Path: src, Data: props.Data, Width: w, Height: h, Fit: props.Fit, Opacity: 1}
	return nil
}

// emit 将测量好的盒子写入物理页面，ax/ay 为盒子在页面上的绝对坐标。
func (b *builder) emit(bx *box, page int, ax, ay float64) {
	p := &b.result.Pages[page]
	b.record(bx.node, document.Geometry{
		Page: page, X: ax, Y: ay, Width: bx.w, Height: bx.h,
		Content: bx.content, Href: bx.href,
	})
	for _, in := range bx.inline {
		b.record(in.node, document.Geometry{
			Page: page, X: ax, Y: ay, Width: bx.w, Height: bx.h,
			Content: in.content, Href: in.href,
		})
		if in.href != "" {
			p.Links = append(p.Links, LinkBox{X: ax, Y: ay, Width: bx.w, Height: bx.h, Href: in.href})
		}
	}

	if bx.fill != nil || bx.stroke != nil {
		p.Rects = append(p.Rects, Rect{
			X: ax, Y: ay, Width: bx.w, Height: bx.h,
			FillColor: bx.fill, StrokeColor: bx.stroke, StrokeWidth: bx.strokeW,
		})
	}
	if bx.text != nil {
		tb := *bx.text
		tb.X += ax
		tb.Y += ay
		p.Texts = append(p.Texts, tb)
	}
	if bx.href != "" {
		p.Links = append(p.Links, LinkBox{X: ax, Y: ay, Width: bx.w, Height: bx.h, Href: bx.href})
	}
	if bx.image != nil {
		ib := *bx.image
		ib.X, ib.Y = ax, ay
		p.Images = append(p.Images, ib)
	}
	if bx.canvas != nil {
		cb := *bx.canvas
		cb.X, cb.Y = ax, ay
		p.Canvases = append(p.Canvases, cb)
	}
	if bx.note != nil {
		nb := *bx.note
		nb.X, nb.Y = ax, ay
		p.Notes = append(p.Notes, nb)
	}
	for _, c := range bx.children {
		b.emit(c, page, ax+c.x, ay+c.y)
	}
}

func (b *builder) record(n *document.Node, g document.Geometry) {
	g.ID = n.ID()
	g.Kind = n.Kind().String()
	b.result.Nodes[n.ID()] = g
}

func resolvePageSize(size, orientation string, req Request) (float64, float64, error) {
	if strings.TrimSpace(size) == "" {
		size = req.PageSize
	}
	if strings.TrimSpace(size) == "" {
		size = defaultPageSize
	}
	if orientation == "" {
		orientation = req.Orientation
	}

	var width, height float64
	if base, ok := pagePresets[strings.ToUpper(strings.TrimSpace(size))]; ok {
		width, height = base[0], base[1]
	} else {
		fields := strings.Fields(size)
		if len(fields) != 2 {
			return 0, 0, fmt.Errorf("%w: 暂不支持的纸张尺寸：%s", ErrLayout, size)
		}
		w, okW := parseLengthOK(fields[0])
		h, okH := parseLengthOK(fields[1])
		if !okW || !okH || w.ToMM() <= 0 || h.ToMM() <= 0 {
			return 0, 0, fmt.Errorf("%w: 暂不支持的纸张尺寸：%s", ErrLayout, size)
		}
		width, height = w.ToMM(), h.ToMM()
	}
	if strings.EqualFold(strings.TrimSpace(orientation), "landscape") && width < height {
		width, height = height, width
	}
	return width, height, nil
}

func collectFonts(props document.DocumentProps) map[string]FontResource {
	fonts := map[string]FontResource{}
	for name, src := range props.Fonts {
		if name == "" {
			continue
		}
		fonts[name] = FontResource{Name: name, Src: src.Src, Style: src.Style, Family: name}
	}
	if _, ok := fonts["Body"]; !ok {
		fonts["Body"] = FontResource{Name: "Body", Src: "embed:roman", Family: "Body"}
	}
	return fonts
}

// resolveFont 查找声明的字体；未声明的名称按内置字体处理（例如 "sans-bold"）。
func (b *builder) resolveFont(name string) FontResource {
	name = strings.TrimSpace(name)
	if name == "" {
		return b.fonts["Body"]
	}
	if font, ok := b.fonts[name]; ok {
		return font
	}
	font := FontResource{Name: name, Src: "embed:" + name, Family: name}
	b.fonts[name] = font
	return font
}

func collectMeta(props document.DocumentProps) DocumentMeta {
	return DocumentMeta{
		Title:    props.Title,
		Author:   props.Author,
		Subject:  props.Subject,
		Creator:  props.Creator,
		Producer: props.Producer,
		Language: props.Language,
		Keywords: append([]string(nil), props.Keywords...),
	}
}
