package canvasrenderer

import (
	"math"
	"strings"
	"testing"

	"github.com/ByLCY/quire/layout"
)

var bodyFont = layout.FontResource{Name: "body", Src: "embed:roman"}

// 字号与行高均为 mm
func typeset(t *testing.T, content string, width float64, wrap string) []layout.TextLine {
	t.Helper()
	size := 11 * layout.PtToMm
	lines, err := NewRenderer(".").LayoutLines(content, width, bodyFont, size, size*1.25, wrap)
	if err != nil {
		t.Fatalf("LayoutLines(%q): %v", content, err)
	}
	if len(lines) == 0 {
		t.Fatalf("LayoutLines(%q) returned no lines", content)
	}
	return lines
}

func contents(lines []layout.TextLine) []string {
	out := make([]string, len(lines))
	for i, ln := range lines {
		out[i] = ln.Content
	}
	return out
}

func TestTypesetLineBreaks(t *testing.T) {
	cases := []struct {
		name    string
		content string
		width   float64
		wrap    string
		want    []string
	}{
		{name: "explicit newlines keep blank line", content: "total\n\ndue", width: 120, want: []string{"total", "", "due"}},
		{name: "nowrap ignores width", content: "invoice number 0042\nnet 30", width: 5, wrap: "nowrap", want: []string{"invoice number 0042", "net 30"}},
		{name: "empty content yields one line", content: "", width: 50, want: []string{""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := contents(typeset(t, tc.content, tc.width, tc.wrap))
			if strings.Join(got, "|") != strings.Join(tc.want, "|") {
				t.Fatalf("lines = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTypesetWrapsWithinWidth(t *testing.T) {
	const limit = 25.0
	lines := typeset(t, "quarterly statement for account holders", limit, "")
	if len(lines) < 2 {
		t.Fatalf("expected the sentence to wrap, got %q", contents(lines))
	}
	long := typeset(t, strings.Repeat("x", 60), limit, "")
	for i, ln := range append(lines, long...) {
		if ln.Width > limit+1e-6 {
			t.Fatalf("line %d (%q) is %gmm wide, limit %gmm", i, ln.Content, ln.Width, limit)
		}
	}
}

// 行宽恰好等于容器宽度且紧跟换行时，不应多出空行
func TestTypesetExactWidthBeforeNewline(t *testing.T) {
	first := typeset(t, "LINE-ONE", 1e6, "")
	width := first[0].Width
	if width <= 0 {
		t.Fatalf("measured width %g", width)
	}
	got := contents(typeset(t, "LINE-ONE\nLINE-TWO", width, ""))
	if len(got) != 2 || got[0] != "LINE-ONE" || got[1] != "LINE-TWO" {
		t.Fatalf("lines = %q", got)
	}
}

func TestTypesetLeading(t *testing.T) {
	size := 11 * layout.PtToMm
	lineHeight := size * 1.25
	lines := typeset(t, "alpha beta gamma delta epsilon zeta eta theta", 20, "")
	if len(lines) < 2 {
		t.Fatalf("expected several lines, got %d", len(lines))
	}
	if lines[0].GapBefore != 0 {
		t.Fatalf("first line gap = %g, want 0", lines[0].GapBefore)
	}
	textHeight := lines[0].Height
	want := math.Max(lineHeight-textHeight, 0)
	for i, ln := range lines[1:] {
		if math.Abs(ln.GapBefore-want) > 1e-6 || math.Abs(ln.Height-textHeight) > 1e-6 {
			t.Fatalf("line %d gap=%g height=%g, want gap=%g height=%g", i+1, ln.GapBefore, ln.Height, want, textHeight)
		}
	}
}
