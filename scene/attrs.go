package scene

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/ByLCY/quire/document"
	"github.com/ByLCY/quire/dsl"
)

// flag is a bare argument that sets one attribute.
type flag struct {
	key   string
	value any
}

var styleFlags = map[string]flag{
	"row":        {"direction", "row"},
	"column":     {"direction", "column"},
	"left":       {"align", "left"},
	"center":     {"align", "center"},
	"right":      {"align", "right"},
	"nowrap":     {"wrap", "nowrap"},
	"break-word": {"wrap", "break-word"},
	"anywhere":   {"wrap", "anywhere"},
}

var kindFlags = map[document.Kind]map[string]flag{
	document.KindPage: {
		"portrait":  {"orientation", "portrait"},
		"landscape": {"orientation", "landscape"},
		"nowrap":    {"page-wrap", false},
	},
	document.KindImage: {
		"contain": {"fit", "contain"},
	},
}

// args reads command arguments as flags and key/value pairs. For text-like
// commands a bare declared font name selects that font.
func (b *builder) args(lexemes []*dsl.Lexeme, kind document.Kind) (map[string]any, error) {
	attrs := map[string]any{}
	for i := 0; i < len(lexemes); i++ {
		tok := lexemes[i].Value
		if lexemes[i].Type == "Ident" {
			if f, ok := kindFlags[kind][tok]; ok {
				attrs[f.key] = f.value
				continue
			}
			if f, ok := styleFlags[tok]; ok {
				attrs[f.key] = f.value
				continue
			}
			if _, ok := b.fonts[tok]; ok {
				attrs["font"] = tok
				continue
			}
		}
		if i+1 >= len(lexemes) {
			return nil, fmt.Errorf("missing value for %q", tok)
		}
		attrs[tok] = lexemes[i+1].Value
		i++
	}
	return attrs, nil
}

// pairs reads arguments strictly as key/value pairs.
func pairs(lexemes []*dsl.Lexeme) (map[string]any, error) {
	if len(lexemes)%2 != 0 {
		return nil, fmt.Errorf("missing value for %q", lexemes[len(lexemes)-1].Value)
	}
	attrs := make(map[string]any, len(lexemes)/2)
	for i := 0; i < len(lexemes); i += 2 {
		attrs[lexemes[i].Value] = lexemes[i+1].Value
	}
	return attrs, nil
}

func decodeProps(kind document.Kind, attrs map[string]any) (document.Props, error) {
	switch kind {
	case document.KindView:
		return decodeAs[document.ViewProps](attrs)
	case document.KindText:
		return decodeAs[document.TextProps](attrs)
	case document.KindLink:
		return decodeAs[document.LinkProps](attrs)
	case document.KindNote:
		return decodeAs[document.NoteProps](attrs)
	case document.KindImage:
		return decodeAs[document.ImageProps](attrs)
	case document.KindCanvas:
		return decodeAs[document.CanvasProps](attrs)
	default:
		return nil, fmt.Errorf("unsupported node kind %s", kind)
	}
}

func decodeAs[P document.Props](attrs map[string]any) (document.Props, error) {
	var p P
	if err := decode(attrs, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// decode uses weak typing so "false" fills a bool and a lone string fills a slice.
// Unknown keys are rejected.
func decode(input map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
