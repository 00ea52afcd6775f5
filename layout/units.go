package layout

import (
	"strconv"
	"strings"
)

// This file defines unit-safe types and helpers for lengths, edges and line-height.

// Unit represents the original unit of a length value as written in a style.
type Unit int

const (
	UnitNone    Unit = iota // unit-less numbers (factors, or mm for absolute lengths)
	UnitMM                  // millimeters
	UnitCM                  // centimeters
	UnitIN                  // inches
	UnitPT                  // points
	UnitPercent             // percentage of the containing box
)

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

var unitSuffixes = []struct {
	s string
	u Unit
}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}, {"%", UnitPercent}}

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	case UnitPercent:
		return "%"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// To converts this length to target unit. Supported targets: UnitMM, UnitPT.
// Percentages have no absolute value and convert to 0; use Resolve instead.
func (l Length) To(target Unit) float64 {
	var mm float64
	switch l.Unit {
	case UnitMM, UnitNone:
		mm = l.Value
	case UnitCM:
		mm = l.Value * 10
	case UnitIN:
		mm = l.Value * 25.4
	case UnitPT:
		if target == UnitPT {
			return l.Value
		}
		mm = l.Value * PtToMm
	case UnitPercent:
		return 0
	}
	if target == UnitPT {
		return mm * MmToPt
	}
	return mm
}

func (l Length) ToMM() float64 { return l.To(UnitMM) }
func (l Length) ToPT() float64 { return l.To(UnitPT) }

// Resolve returns the length in mm, resolving percentages against reference (mm).
func (l Length) Resolve(reference float64) float64 {
	if l.Unit == UnitPercent {
		return reference * l.Value / 100
	}
	return l.ToMM()
}

// ParseRawLengthStr parses a style length string preserving its unit.
// Invalid input yields the zero Length.
func ParseRawLengthStr(value string) Length {
	l, _ := parseLengthOK(value)
	return l
}

func parseLengthOK(value string) (Length, bool) {
	lower := strings.ToLower(strings.TrimSpace(value))
	if lower == "" {
		return Length{}, false
	}
	unit := UnitNone
	num := lower
	for _, suf := range unitSuffixes {
		if strings.HasSuffix(lower, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(lower, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, false
	}
	return Length{Value: f, Unit: unit}, true
}

// Edges holds per-side lengths in mm (margin, padding).
type Edges struct {
	Top, Right, Bottom, Left float64
}

func (e Edges) Horizontal() float64 { return e.Left + e.Right }
func (e Edges) Vertical() float64   { return e.Top + e.Bottom }

// ParseEdges applies CSS-like shorthand semantics, resolving percentages against reference:
// 1 value: all sides; 2 values: vertical horizontal; 3 values: top horizontal bottom;
// 4 values: top right bottom left. Non-length tokens end the list.
func ParseEdges(value string, reference float64) Edges {
	var vals []float64
	for _, field := range strings.Fields(value) {
		l, ok := parseLengthOK(field)
		if !ok {
			break
		}
		vals = append(vals, l.Resolve(reference))
		if len(vals) == 4 {
			break
		}
	}
	switch len(vals) {
	case 1:
		v := vals[0]
		return Edges{Top: v, Right: v, Bottom: v, Left: v}
	case 2:
		return Edges{Top: vals[0], Right: vals[1], Bottom: vals[0], Left: vals[1]}
	case 3:
		return Edges{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[1]}
	case 4:
		return Edges{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}
	default:
		return Edges{}
	}
}

// LineHeightKind distinguishes factor-based vs absolute line-height specification.
type LineHeightKind int

const (
	LineHeightFactor LineHeightKind = iota
	LineHeightAbsolute
)

// LineHeightSpec preserves original author intent: either a factor (e.g., 1.2x) or an absolute length (e.g., 18pt).
type LineHeightSpec struct {
	Kind   LineHeightKind `json:"kind"`
	Factor float64        `json:"factor,omitempty"`
	Len    Length         `json:"len,omitempty"`
}

// ParseLineHeight accepts "1.2", "1.2x" (factors) or absolute lengths ("18pt", "6mm").
// Empty or invalid values fall back to defaultLineHeightFactor.
func ParseLineHeight(value string) LineHeightSpec {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return LineHeightSpec{Kind: LineHeightFactor, Factor: defaultLineHeightFactor}
	}
	if f, err := strconv.ParseFloat(strings.TrimSuffix(v, "x"), 64); err == nil && f > 0 {
		return LineHeightSpec{Kind: LineHeightFactor, Factor: f}
	}
	if l, ok := parseLengthOK(v); ok && l.Value > 0 && l.Unit != UnitPercent {
		return LineHeightSpec{Kind: LineHeightAbsolute, Len: l}
	}
	return LineHeightSpec{Kind: LineHeightFactor, Factor: defaultLineHeightFactor}
}

// Resolve computes the absolute line height in target unit using the given fontSize (which carries its unit).
func (s LineHeightSpec) Resolve(fontSize Length, target Unit) float64 {
	switch s.Kind {
	case LineHeightFactor:
		return fontSize.To(target) * s.Factor
	case LineHeightAbsolute:
		return s.Len.To(target)
	default:
		return fontSize.To(target) * defaultLineHeightFactor
	}
}

// raw returns the debug representation of the spec.
func (s LineHeightSpec) raw() *RawLineHeightJSON {
	if s.Kind == LineHeightAbsolute {
		return &RawLineHeightJSON{Kind: "absolute", Value: s.Len.Value, Unit: UnitToString(s.Len.Unit)}
	}
	return &RawLineHeightJSON{Kind: "factor", Factor: s.Factor}
}
