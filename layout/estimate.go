package layout

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// estimateCharWidth 为每个字符的估算宽度与字号之比。
const estimateCharWidth = 0.5

// Estimator 是不依赖字体文件的排版后端：按字号估算字符宽度并贪心折行。
// 适用于预览与测试；正式输出使用渲染器提供的 Typesetter。
type Estimator struct{}

var _ Typesetter = Estimator{}

// LayoutLines 实现 Typesetter，fontSize/lineHeight/width 均为 mm。
func (Estimator) LayoutLines(content string, width float64, _ FontResource, fontSize, lineHeight float64, wrap string) ([]TextLine, error) {
	if fontSize <= 0 {
		fontSize = defaultFontSizePt * PtToMm
	}
	measure := func(s string) float64 {
		return float64(utf8.RuneCountInString(s)) * fontSize * estimateCharWidth
	}
	limit := width
	if limit <= 0 {
		limit = math.MaxFloat64
	}

	var lines []TextLine
	for _, paragraph := range strings.Split(strings.ReplaceAll(content, "\r", ""), "\n") {
		if wrap == "nowrap" {
			lines = append(lines, TextLine{Content: paragraph, Width: measure(paragraph)})
			continue
		}
		var current string
		flush := func() {
			trimmed := strings.TrimRightFunc(current, unicode.IsSpace)
			lines = append(lines, TextLine{Content: trimmed, Width: measure(trimmed)})
			current = ""
		}
		for _, word := range splitWords(paragraph) {
			if current != "" && measure(current+word) > limit {
				flush()
				word = strings.TrimLeftFunc(word, unicode.IsSpace)
			}
			// 单词本身超出宽度时按字符切分
			for measure(word) > limit && utf8.RuneCountInString(word) > 1 {
				n := int(limit / (fontSize * estimateCharWidth))
				if n < 1 {
					n = 1
				}
				runes := []rune(word)
				if n >= len(runes) {
					break
				}
				current += string(runes[:n])
				flush()
				word = string(runes[n:])
			}
			current += word
		}
		flush()
	}

	leading := math.Max(lineHeight-fontSize, 0)
	for i := range lines {
		lines[i].Height = fontSize
		if i > 0 {
			lines[i].GapBefore = leading
		}
	}
	return lines, nil
}

// splitWords 把段落拆成 "前导空白+单词" 的片段。
func splitWords(s string) []string {
	var words []string
	var sb strings.Builder
	inWord := false
	for _, r := range s {
		space := unicode.IsSpace(r)
		if space && inWord {
			words = append(words, sb.String())
			sb.Reset()
			inWord = false
		}
		if !space {
			inWord = true
		}
		sb.WriteRune(r)
	}
	if sb.Len() > 0 {
		words = append(words, sb.String())
	}
	return words
}
