package document

// Props is the closed set of per-kind property structs.
// Layout and encoding validate values; the tree only checks that the struct matches the node kind.
type Props interface {
	Kind() Kind
}

// Style carries box and text styling. Lengths are strings with units ("12pt", "10mm", "50%"),
// colors are "#RGB"/"#RRGGBB" literals.
type Style struct {
	Width           string `mapstructure:"width" json:"width,omitempty"`
	Height          string `mapstructure:"height" json:"height,omitempty"`
	Margin          string `mapstructure:"margin" json:"margin,omitempty"`
	Padding         string `mapstructure:"padding" json:"padding,omitempty"`
	Gap             string `mapstructure:"gap" json:"gap,omitempty"`
	Direction       string `mapstructure:"direction" json:"direction,omitempty"` // column (default) | row
	BackgroundColor string `mapstructure:"background" json:"backgroundColor,omitempty"`
	BorderWidth     string `mapstructure:"border" json:"borderWidth,omitempty"`
	BorderColor     string `mapstructure:"border-color" json:"borderColor,omitempty"`
	Color           string `mapstructure:"color" json:"color,omitempty"`
	FontFamily      string `mapstructure:"font" json:"fontFamily,omitempty"`
	FontSize        string `mapstructure:"size" json:"fontSize,omitempty"`
	LineHeight      string `mapstructure:"line-height" json:"lineHeight,omitempty"`
	TextAlign       string `mapstructure:"align" json:"textAlign,omitempty"`
	Wrap            string `mapstructure:"wrap" json:"wrap,omitempty"` // anywhere | break-word | nowrap
}

// FontSource registers a font family for the document. Src follows the renderer
// conventions: "embed:<name>", "built-in:<name>" or a path relative to the base dir.
type FontSource struct {
	Src   string `mapstructure:"src" json:"src"`
	Style string `mapstructure:"style" json:"style,omitempty"`
}

// DocumentProps configures document metadata and the render observer.
type DocumentProps struct {
	Title    string                `mapstructure:"title"`
	Author   string                `mapstructure:"author"`
	Subject  string                `mapstructure:"subject"`
	Creator  string                `mapstructure:"creator"`
	Producer string                `mapstructure:"producer"`
	Language string                `mapstructure:"lang"`
	Keywords []string              `mapstructure:"keywords"`
	Fonts    map[string]FontSource `mapstructure:"fonts"`
	OnRender Observer              `mapstructure:"-"`
}

// PageProps configures one logical page.
type PageProps struct {
	Size        string `mapstructure:"size"` // A3/A4/A5/LETTER/LEGAL or "210mm 297mm"
	Orientation string `mapstructure:"orientation"`
	Wrap        *bool  `mapstructure:"page-wrap"`
	Style       Style  `mapstructure:",squash"`
}

// ViewProps configures a block container.
type ViewProps struct {
	Style Style `mapstructure:",squash"`
}

// TextProps configures a text run. Child Text/Link nodes are appended inline.
type TextProps struct {
	Content string `mapstructure:"content"`
	Style   Style  `mapstructure:",squash"`
}

// LinkProps configures a hyperlink.
type LinkProps struct {
	Href    string `mapstructure:"href"`
	Content string `mapstructure:"content"`
	Style   Style  `mapstructure:",squash"`
}

// NoteProps configures a note annotation.
type NoteProps struct {
	Content string `mapstructure:"content"`
	Style   Style  `mapstructure:",squash"`
}

// ImageProps configures an image. Data takes precedence over Src.
type ImageProps struct {
	Src   string `mapstructure:"src"`
	Data  []byte `mapstructure:"-"`
	Fit   string `mapstructure:"fit"`
	Style Style  `mapstructure:",squash"`
}

// Painter is the drawing surface handed to canvas paint callbacks.
// Coordinates are millimetres relative to the canvas box, origin top-left.
type Painter interface {
	FillColor(hex string)
	StrokeColor(hex string)
	StrokeWidth(mm float64)
	Line(x1, y1, x2, y2 float64)
	Rect(x, y, w, h float64)
	Circle(cx, cy, r float64)
}

// PaintFunc draws into a canvas box of the given size (mm).
type PaintFunc func(p Painter, width, height float64) error

// CanvasProps configures a free-form drawing box.
type CanvasProps struct {
	Paint PaintFunc `mapstructure:"-"`
	Style Style     `mapstructure:",squash"`
}

func (rootProps) Kind() Kind     { return KindRoot }
func (DocumentProps) Kind() Kind { return KindDocument }
func (PageProps) Kind() Kind     { return KindPage }
func (ViewProps) Kind() Kind     { return KindView }
func (TextProps) Kind() Kind     { return KindText }
func (LinkProps) Kind() Kind     { return KindLink }
func (NoteProps) Kind() Kind     { return KindNote }
func (ImageProps) Kind() Kind    { return KindImage }
func (CanvasProps) Kind() Kind   { return KindCanvas }

type rootProps struct{}

// StyleOf returns the style of props that carry one.
func StyleOf(p Props) Style {
	switch v := p.(type) {
	case PageProps:
		return v.Style
	case ViewProps:
		return v.Style
	case TextProps:
		return v.Style
	case LinkProps:
		return v.Style
	case NoteProps:
		return v.Style
	case ImageProps:
		return v.Style
	case CanvasProps:
		return v.Style
	default:
		return Style{}
	}
}

func zeroProps(k Kind) Props {
	switch k {
	case KindDocument:
		return DocumentProps{}
	case KindPage:
		return PageProps{}
	case KindView:
		return ViewProps{}
	case KindText:
		return TextProps{}
	case KindLink:
		return LinkProps{}
	case KindNote:
		return NoteProps{}
	case KindImage:
		return ImageProps{}
	case KindCanvas:
		return CanvasProps{}
	default:
		return rootProps{}
	}
}

// cloneProps copies the reference-typed fields so snapshots never alias caller state.
func cloneProps(p Props) Props {
	switch v := p.(type) {
	case DocumentProps:
		v.Keywords = append([]string(nil), v.Keywords...)
		if v.Fonts != nil {
			fonts := make(map[string]FontSource, len(v.Fonts))
			for name, src := range v.Fonts {
				fonts[name] = src
			}
			v.Fonts = fonts
		}
		return v
	case PageProps:
		if v.Wrap != nil {
			w := *v.Wrap
			v.Wrap = &w
		}
		return v
	case ImageProps:
		v.Data = append([]byte(nil), v.Data...)
		return v
	default:
		return p
	}
}
