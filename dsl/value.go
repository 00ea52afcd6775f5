package dsl

import "strings"

// Interface converts a property value to plain Go data: strings for scalars
// (numbers keep their unit suffix), []any for arrays and map[string]any for objects.
// Bare expressions are returned as their space-joined source tokens.
func (v *Value) Interface() any {
	switch {
	case v == nil:
		return nil
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Color != nil:
		return *v.Color
	case v.Array != nil:
		out := make([]any, 0, len(v.Array.Values))
		for _, item := range v.Array.Values {
			out = append(out, item.Interface())
		}
		return out
	case v.Object != nil:
		out := make(map[string]any, len(v.Object.Entries))
		for _, entry := range v.Object.Entries {
			out[entry.Key] = entry.Value.Interface()
		}
		return out
	case v.Expr != nil:
		return v.Expr.String()
	default:
		return nil
	}
}

// String returns the expression's source tokens joined by spaces; dotted paths are kept tight.
func (e *Expression) String() string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	for i, part := range e.Parts {
		if i > 0 && part.Raw != "." && e.Parts[i-1].Raw != "." {
			sb.WriteByte(' ')
		}
		sb.WriteString(part.Value)
	}
	return sb.String()
}

// Literals returns the text literals of a block in order.
func (b *Block) Literals() []string {
	if b == nil {
		return nil
	}
	var out []string
	for _, st := range b.Statements {
		if st.Text != nil {
			out = append(out, string(st.Text.Value))
		}
	}
	return out
}

// Assignments returns the block's key: value statements as plain Go data.
// Later keys override earlier ones.
func (b *Block) Assignments() map[string]any {
	out := map[string]any{}
	if b == nil {
		return out
	}
	for _, st := range b.Statements {
		if st.Assignment != nil {
			out[st.Assignment.Key] = st.Assignment.Value.Interface()
		}
	}
	return out
}

// Commands returns the block's nested commands in order.
func (b *Block) Commands() []*Command {
	if b == nil {
		return nil
	}
	var out []*Command
	for _, st := range b.Statements {
		if st.Command != nil {
			out = append(out, st.Command)
		}
	}
	return out
}
