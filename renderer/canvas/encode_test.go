package canvasrenderer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/quire/document"
	"github.com/ByLCY/quire/fonts"
	"github.com/ByLCY/quire/layout"
	"github.com/ByLCY/quire/renderer"
)

func buildResult(t *testing.T, r *Renderer, populate func(tree *document.Tree, page *document.Node)) *layout.Result {
	t.Helper()
	tree := document.NewTree()
	doc, _ := tree.CreateNode(document.KindDocument, document.DocumentProps{Title: "Test", Keywords: []string{"a", "b"}})
	page, _ := tree.CreateNode(document.KindPage, document.PageProps{Style: document.Style{Padding: "10mm"}})
	if err := tree.Attach(tree.Root(), doc); err != nil {
		t.Fatalf("attach document: %v", err)
	}
	if err := tree.Attach(doc, page); err != nil {
		t.Fatalf("attach page: %v", err)
	}
	populate(tree, page)
	res, err := layout.NewEngine(r).Layout(context.Background(), tree.Snapshot(), layout.Request{})
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	return res
}

func add(t *testing.T, tree *document.Tree, parent *document.Node, kind document.Kind, props document.Props) *document.Node {
	t.Helper()
	n, err := tree.CreateNode(kind, props)
	if err != nil {
		t.Fatalf("create %s: %v", kind, err)
	}
	if err := tree.Attach(parent, n); err != nil {
		t.Fatalf("attach %s: %v", kind, err)
	}
	return n
}

func TestEncodeWritesPDF(t *testing.T) {
	r := NewRenderer("")
	var pixels bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{G: 255, A: 255})
	if err := png.Encode(&pixels, img); err != nil {
		t.Fatalf("png: %v", err)
	}

	painted := false
	res := buildResult(t, r, func(tree *document.Tree, page *document.Node) {
		view := add(t, tree, page, document.KindView, document.ViewProps{Style: document.Style{
			Padding: "2mm", BackgroundColor: "#eeeeee", BorderWidth: "0.3mm", BorderColor: "#333",
		}})
		add(t, tree, view, document.KindText, document.TextProps{Content: "Hello", Style: document.Style{TextAlign: "center"}})
		add(t, tree, view, document.KindLink, document.LinkProps{Href: "https://example.com", Content: "example"})
		add(t, tree, page, document.KindImage, document.ImageProps{Data: pixels.Bytes(), Fit: "contain", Style: document.Style{Width: "20mm", Height: "10mm"}})
		add(t, tree, page, document.KindCanvas, document.CanvasProps{
			Style: document.Style{Height: "20mm"},
			Paint: func(p document.Painter, w, h float64) error {
				painted = true
				p.StrokeColor("#ff0000")
				p.StrokeWidth(0.5)
				p.Line(0, 0, w, h)
				p.FillColor("#00ff00")
				p.Rect(1, 1, 5, 5)
				p.Circle(w/2, h/2, 3)
				return nil
			},
		})
		add(t, tree, page, document.KindNote, document.NoteProps{Content: "remember"})
	})

	var out bytes.Buffer
	if err := r.Encode(context.Background(), res, layout.Request{}, &out); err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if !bytes.HasPrefix(out.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", out.Bytes()[:min(16, out.Len())])
	}
	if !painted {
		t.Fatalf("canvas paint callback was not invoked")
	}
	if r.images.Len() != 1 {
		t.Fatalf("expected decoded image to be cached, cache len=%d", r.images.Len())
	}
}

func TestEncodeMultiplePages(t *testing.T) {
	r := NewRenderer("")
	res := buildResult(t, r, func(tree *document.Tree, page *document.Node) {
		for i := 0; i < 3; i++ {
			add(t, tree, page, document.KindCanvas, document.CanvasProps{Style: document.Style{Height: "150mm"}})
		}
	})
	if res.PageCount() < 2 {
		t.Fatalf("expected overflow onto several pages, got %d", res.PageCount())
	}
	var out bytes.Buffer
	if err := r.Encode(context.Background(), res, layout.Request{}, &out); err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if !bytes.HasPrefix(out.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a PDF")
	}
}

func TestEncodeErrorsWrapErrEncoding(t *testing.T) {
	r := NewRenderer("")
	var out bytes.Buffer

	if err := r.Encode(context.Background(), nil, layout.Request{}, &out); !errors.Is(err, renderer.ErrEncoding) {
		t.Fatalf("nil result: expected ErrEncoding, got %v", err)
	}
	if err := r.Encode(context.Background(), &layout.Result{}, layout.Request{}, &out); !errors.Is(err, renderer.ErrEncoding) {
		t.Fatalf("empty result: expected ErrEncoding, got %v", err)
	}

	boom := errors.New("paint failed")
	res := buildResult(t, r, func(tree *document.Tree, page *document.Node) {
		add(t, tree, page, document.KindCanvas, document.CanvasProps{
			Paint: func(document.Painter, float64, float64) error { return boom },
		})
	})
	err := r.Encode(context.Background(), res, layout.Request{}, &out)
	if !errors.Is(err, renderer.ErrEncoding) || !errors.Is(err, boom) {
		t.Fatalf("expected ErrEncoding wrapping paint error, got %v", err)
	}

	panicky := buildResult(t, r, func(tree *document.Tree, page *document.Node) {
		add(t, tree, page, document.KindCanvas, document.CanvasProps{
			Paint: func(document.Painter, float64, float64) error { panic("bad brush") },
		})
	})
	if err := r.Encode(context.Background(), panicky, layout.Request{}, &out); !errors.Is(err, renderer.ErrEncoding) {
		t.Fatalf("expected panic to surface as ErrEncoding, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Encode(ctx, res, layout.Request{}, &out); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFontFallbackAndBuiltIn(t *testing.T) {
	r := NewRendererWithOptions(Options{Fonts: map[string][]byte{"serif": mustFont(t, "roman-italic")}})
	fontSizeMM := 12 * layout.PtToMm

	if _, err := r.LayoutLines("abc", 50, layout.FontResource{Name: "Serif", Src: "built-in:serif"}, fontSizeMM, fontSizeMM*1.2, ""); err != nil {
		t.Fatalf("built-in font: %v", err)
	}
	// 未知字体退回默认字体而不是报错
	if _, err := r.LayoutLines("abc", 50, layout.FontResource{Name: "Ghost", Src: "embed:ghost"}, fontSizeMM, fontSizeMM*1.2, ""); err != nil {
		t.Fatalf("fallback font: %v", err)
	}
	if _, err := r.loadFontBytes(layout.FontResource{Name: "Rel", Src: "fonts/x.ttf"}); err == nil {
		t.Fatalf("relative font path without base dir must fail")
	}
}

func TestParseFontStyle(t *testing.T) {
	cases := map[string]canvas.FontStyle{
		"":            canvas.FontRegular,
		"bold":        canvas.FontBold,
		"semibold":    canvas.FontSemiBold,
		"Bold Italic": canvas.FontBold | canvas.FontItalic,
		"B":           canvas.FontBold,
		"light":       canvas.FontLight,
	}
	for in, want := range cases {
		if got := parseFontStyle(in); got != want {
			t.Fatalf("parseFontStyle(%q) = %v, want %v", in, got, want)
		}
	}
}

func mustFont(t *testing.T, name string) []byte {
	t.Helper()
	data, err := fonts.Load(name)
	if err != nil {
		t.Fatalf("load font %s: %v", name, err)
	}
	return data
}
