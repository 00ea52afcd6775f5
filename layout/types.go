package layout

import "github.com/ByLCY/quire/document"

// 该文件定义布局结果与资源描述，供布局计算、编码与调试 JSON 共用。

// Result 保存一次布局的完整结果：物理页面、逐节点几何信息、字体资源与元信息。
// Result 发布后只读，下一次渲染会产生新的 Result 而不是修改它。
type Result struct {
	Pages     []Page                                `json:"pages"`
	Nodes     map[document.NodeID]document.Geometry `json:"nodes"`
	Resources ResourceSet                           `json:"resources"`
	Meta      DocumentMeta                          `json:"meta"`
}

var _ document.LayoutData = (*Result)(nil)

// Geometry 按节点 ID 查询几何信息。
func (r *Result) Geometry(id document.NodeID) (document.Geometry, bool) {
	if r == nil {
		return document.Geometry{}, false
	}
	g, ok := r.Nodes[id]
	return g, ok
}

// Lookup 使用活动树或快照中的节点查询几何信息。
func (r *Result) Lookup(n *document.Node) (document.Geometry, bool) {
	if n == nil {
		return document.Geometry{}, false
	}
	return r.Geometry(n.ID())
}

// PageCount 返回物理页数。
func (r *Result) PageCount() int {
	if r == nil {
		return 0
	}
	return len(r.Pages)
}

// ResourceSet 记录文档声明的字体。
type ResourceSet struct {
	Fonts map[string]FontResource `json:"fonts"`
}

// FontResource 描述字体资源，src 可以是文件路径、embed:<name> 或 built-in:<name> 形式。
type FontResource struct {
	Name   string `json:"name"`
	Src    string `json:"src"`
	Style  string `json:"style"`
	Family string `json:"family"` // 渲染器使用的 Family 名称
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Page 记录物理页面尺寸、边距与最终可以直接绘制的元素（单位：mm，原点左上角）。
// 绘制顺序：Rects、Lines、Texts、Images、Canvases、Notes；Links 只产生链接区域。
type Page struct {
	Width    float64     `json:"width"`
	Height   float64     `json:"height"`
	Margin   Margin      `json:"margin"`
	Rects    []Rect      `json:"rects,omitempty"`
	Lines    []Line      `json:"lines,omitempty"`
	Texts    []TextBox   `json:"texts,omitempty"`
	Images   []ImageBox  `json:"images,omitempty"`
	Canvases []CanvasBox `json:"canvases,omitempty"`
	Notes    []NoteBox   `json:"notes,omitempty"`
	Links    []LinkBox   `json:"links,omitempty"`
}

// Margin 以毫米为单位。
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// TextBox 表示一个已经排好坐标的文本块。
type TextBox struct {
	Content    string        `json:"content"`
	X          float64       `json:"x"`
	Y          float64       `json:"y"`
	Width      float64       `json:"width"`
	LineHeight float64       `json:"lineHeight"`
	Font       string        `json:"font"`
	FontSize   float64       `json:"fontSize"`
	Color      Color         `json:"color"`
	Lines      []TextLine    `json:"lines"`
	Height     float64       `json:"height"`
	Align      string        `json:"align,omitempty"` // left/center/right（默认 left）
	Wrap       string        `json:"wrap,omitempty"`  // anywhere(默认)/break-word/nowrap
	Underline  bool          `json:"underline,omitempty"`
	Debug      *TextBoxDebug `json:"debug,omitempty"`
}

// TextLine 表示排版后的一行文本内容及其宽高。
type TextLine struct {
	Content   string  `json:"content"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	GapBefore float64 `json:"gapBefore,omitempty"`
}

// TextBoxDebug holds optional debug info displayed only when enabled by the request.
type TextBoxDebug struct {
	RawUnits *RawUnits `json:"rawUnits,omitempty"`
}

// RawUnits describes original author-specified units for key fields.
type RawUnits struct {
	FontSize   *RawLengthJSON     `json:"fontSize,omitempty"`
	LineHeight *RawLineHeightJSON `json:"lineHeight,omitempty"`
}

// RawLengthJSON is a JSON-friendly representation of Length.
type RawLengthJSON struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// RawLineHeightJSON is a JSON-friendly representation of LineHeightSpec.
type RawLineHeightJSON struct {
	Kind   string  `json:"kind"` // "factor" | "absolute"
	Factor float64 `json:"factor,omitempty"`
	Value  float64 `json:"value,omitempty"`
	Unit   string  `json:"unit,omitempty"`
}

// ImageBox 用于描述图片位置与尺寸。Data 非空时优先于 Path。
type ImageBox struct {
	Path    string  `json:"path"`
	Data    []byte  `json:"-"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Fit     string  `json:"fit,omitempty"`
	Opacity float64 `json:"opacity"`
}

// CanvasBox 记录自由绘制区域，Paint 由编码器在绘制时调用。
type CanvasBox struct {
	Node   document.NodeID    `json:"node"`
	X      float64            `json:"x"`
	Y      float64            `json:"y"`
	Width  float64            `json:"width"`
	Height float64            `json:"height"`
	Paint  document.PaintFunc `json:"-"`
}

// NoteBox 表示注释标记。
type NoteBox struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Content string  `json:"content"`
	Color   Color   `json:"color"`
}

// LinkBox 表示可点击的链接区域。
type LinkBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Href   string  `json:"href"`
}

// 基本图形：直线、矩形（单位均为 mm）。
// Line 表示一条线段。
type Line struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Color Color   `json:"color"`
	Width float64 `json:"width"` // 线宽（mm），<=0 时由渲染器给默认值
}

// Rect 表示一个矩形（不包含圆角），用于背景与边框。
type Rect struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	StrokeColor *Color  `json:"strokeColor,omitempty"` // 为空表示不描边
	StrokeWidth float64 `json:"strokeWidth"`           // mm
	FillColor   *Color  `json:"fillColor,omitempty"`   // 为空表示不填充
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Producer string   `json:"producer,omitempty"`
	Language string   `json:"lang,omitempty"`
	Keywords []string `json:"keywords"`
}
