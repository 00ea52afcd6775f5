package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// resolveDimension 解析长度或百分比（相对 reference，mm），无法解析时返回 0。
func resolveDimension(value string, reference float64) float64 {
	l, ok := parseLengthOK(value)
	if !ok {
		return 0
	}
	return l.Resolve(reference)
}

func resolveColor(value string, fallback Color) Color {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if c, err := parseColor(value); err == nil {
		return c
	}
	return fallback
}

func parseColorPtr(value string) *Color {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	c, err := parseColor(value)
	if err != nil {
		return nil
	}
	return &c
}

func parseColor(value string) (Color, error) {
	if c, ok := namedColors[strings.ToLower(value)]; ok {
		return c, nil
	}
	hex := strings.TrimPrefix(value, "#")
	for _, r := range hex {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
		}
	}
	switch len(hex) {
	case 3:
		return Color{
			R: mustHex(strings.Repeat(hex[0:1], 2)),
			G: mustHex(strings.Repeat(hex[1:2], 2)),
			B: mustHex(strings.Repeat(hex[2:3], 2)),
		}, nil
	case 6, 8:
		return Color{
			R: mustHex(hex[0:2]),
			G: mustHex(hex[2:4]),
			B: mustHex(hex[4:6]),
		}, nil
	default:
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
}

var namedColors = map[string]Color{
	"black": {0, 0, 0},
	"white": {255, 255, 255},
	"red":   {255, 0, 0},
	"green": {0, 128, 0},
	"blue":  {0, 0, 255},
	"gray":  {128, 128, 128},
	"grey":  {128, 128, 128},
}

func mustHex(s string) int {
	v, _ := strconv.ParseInt(s, 16, 64)
	return int(v)
}

func normalizeWrap(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "break-word", "word-break:break-word":
		return "break-word"
	case "nowrap", "no-wrap":
		return "nowrap"
	default:
		return "anywhere"
	}
}

// normalizeAlign 支持 start/end 别名，默认 left 时返回空串（JSON 中省略）。
func normalizeAlign(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "center", "middle":
		return "center"
	case "right", "end":
		return "right"
	default:
		return ""
	}
}
