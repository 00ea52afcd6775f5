// Package scene turns a parsed scene file into document nodes and swaps them into a tree.
package scene

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ByLCY/quire/binding"
	"github.com/ByLCY/quire/document"
	"github.com/ByLCY/quire/dsl"
)

// ErrScene marks a scene file that cannot be mapped onto document nodes.
var ErrScene = errors.New("scene: invalid document")

type builder struct {
	tree   *document.Tree
	data   any
	fonts  map[string]document.FontSource
	colors map[string]string
}

// Build maps doc onto a new Document subtree, interpolating ${path} placeholders
// against data, and replaces the root children of tree with it in one mutation.
// An observer registered on the previous Document carries over when the new one has none.
// On error the tree is left untouched apart from detached, unreachable nodes.
func Build(tree *document.Tree, doc *dsl.Document, data any) error {
	if tree == nil || doc == nil {
		return fmt.Errorf("%w: nil tree or document", ErrScene)
	}
	b := &builder{
		tree:   tree,
		data:   data,
		fonts:  map[string]document.FontSource{},
		colors: map[string]string{},
	}

	props := document.DocumentProps{Title: doc.Name}
	var pages []*dsl.PageSection
	for _, sec := range doc.Sections {
		switch {
		case sec.Meta != nil:
			if err := decode(b.interpolate(sec.Meta.Block.Assignments()), &props); err != nil {
				return fmt.Errorf("%w: meta: %w", ErrScene, err)
			}
		case sec.Resources != nil:
			if err := b.resources(sec.Resources.Block); err != nil {
				return err
			}
		case sec.Page != nil:
			pages = append(pages, sec.Page)
		}
	}
	if len(b.fonts) > 0 {
		if props.Fonts == nil {
			props.Fonts = map[string]document.FontSource{}
		}
		for name, src := range b.fonts {
			props.Fonts[name] = src
		}
	}
	if old := tree.Document(); old != nil {
		if prev, ok := old.Props().(document.DocumentProps); ok && props.OnRender == nil {
			props.OnRender = prev.OnRender
		}
	}

	docNode, err := tree.CreateNode(document.KindDocument, props)
	if err != nil {
		return err
	}
	for _, page := range pages {
		pn, err := b.page(page)
		if err != nil {
			return err
		}
		if err := tree.Attach(docNode, pn); err != nil {
			return err
		}
	}
	return tree.Replace(docNode)
}

// resources 处理 font 与 color 声明。
func (b *builder) resources(block *dsl.Block) error {
	for _, cmd := range block.Commands() {
		if len(cmd.Args) == 0 {
			return b.errorf(cmd, "missing resource name")
		}
		name := cmd.Args[0].Value
		rest := cmd.Args[1:]
		switch cmd.Name {
		case "font":
			attrs, err := pairs(rest)
			if err != nil {
				return b.wrap(cmd, err)
			}
			for k, v := range cmd.Block.Assignments() {
				attrs[k] = v
			}
			var src document.FontSource
			if err := decode(b.interpolate(attrs), &src); err != nil {
				return b.wrap(cmd, err)
			}
			if strings.TrimSpace(src.Src) == "" {
				return b.errorf(cmd, "font %s has no src", name)
			}
			b.fonts[name] = src
		case "color":
			if len(rest) > 0 && rest[0].Value == "=" {
				rest = rest[1:]
			}
			if len(rest) != 1 {
				return b.errorf(cmd, "color %s needs exactly one value", name)
			}
			b.colors[name] = rest[0].Value
		default:
			return b.errorf(cmd, "unknown resource %q", cmd.Name)
		}
	}
	return nil
}

func (b *builder) page(sec *dsl.PageSection) (*document.Node, error) {
	attrs, err := b.args(sec.Header.Params, document.KindPage)
	if err != nil {
		return nil, fmt.Errorf("%w: page %s: %w", ErrScene, sec.Header.Size, err)
	}
	for k, v := range sec.Block.Assignments() {
		attrs[k] = v
	}
	attrs = b.resolveColors(b.interpolate(attrs))

	var props document.PageProps
	if err := decode(attrs, &props); err != nil {
		return nil, fmt.Errorf("%w: page %s: %w", ErrScene, sec.Header.Size, err)
	}
	props.Size = sec.Header.Size

	node, err := b.tree.CreateNode(document.KindPage, props)
	if err != nil {
		return nil, err
	}
	if lits := sec.Block.Literals(); len(lits) > 0 {
		return nil, fmt.Errorf("%w: page %s: text literal outside text", ErrScene, sec.Header.Size)
	}
	for _, cmd := range sec.Block.Commands() {
		child, err := b.command(cmd, document.KindPage)
		if err != nil {
			return nil, err
		}
		if err := b.tree.Attach(node, child); err != nil {
			return nil, err
		}
	}
	return node, nil
}

// command 将一条 view/text/link/note/image/canvas 命令转换为节点（含子节点）。
func (b *builder) command(cmd *dsl.Command, parent document.Kind) (*document.Node, error) {
	kind, err := document.ParseKind(cmd.Name)
	if err != nil || kind == document.KindDocument || kind == document.KindPage {
		return nil, b.errorf(cmd, "unknown command %q", cmd.Name)
	}
	if (parent == document.KindText || parent == document.KindLink) && kind != document.KindText && kind != document.KindLink {
		return nil, b.errorf(cmd, "%s cannot be nested in %s", cmd.Name, strings.ToLower(parent.String()))
	}

	attrs, err := b.args(cmd.Args, kind)
	if err != nil {
		return nil, b.wrap(cmd, err)
	}
	for k, v := range cmd.Block.Assignments() {
		attrs[k] = v
	}

	inline := kind == document.KindText || kind == document.KindLink || kind == document.KindNote
	if !inline && len(cmd.Block.Literals()) > 0 {
		return nil, b.errorf(cmd, "text literal not allowed in %s", cmd.Name)
	}
	if !inline && kind != document.KindView && len(cmd.Block.Commands()) > 0 {
		return nil, b.errorf(cmd, "%s cannot have children", cmd.Name)
	}
	if kind == document.KindNote && len(cmd.Block.Commands()) > 0 {
		return nil, b.errorf(cmd, "note cannot have children")
	}

	// 首个子命令之前的文本作为自身内容，之后的文本转为内联 text 子节点以保持顺序。
	var leading []string
	if cmd.Block != nil && inline {
		for _, st := range cmd.Block.Statements {
			if st.Command != nil {
				break
			}
			if st.Text != nil {
				leading = append(leading, string(st.Text.Value))
			}
		}
	}
	if len(leading) > 0 {
		attrs["content"] = strings.Join(leading, "")
	}
	attrs = b.resolveColors(b.interpolate(attrs))

	props, err := decodeProps(kind, attrs)
	if err != nil {
		return nil, b.wrap(cmd, err)
	}
	node, err := b.tree.CreateNode(kind, props)
	if err != nil {
		return nil, err
	}
	if cmd.Block == nil {
		return node, nil
	}

	seenCommand := false
	for _, st := range cmd.Block.Statements {
		var child *document.Node
		switch {
		case st.Command != nil:
			seenCommand = true
			child, err = b.command(st.Command, kind)
		case st.Text != nil && seenCommand:
			child, err = b.tree.CreateNode(document.KindText, document.TextProps{
				Content: binding.Interpolate(string(st.Text.Value), b.data),
			})
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := b.tree.Attach(node, child); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func (b *builder) interpolate(attrs map[string]any) map[string]any {
	return binding.Values(attrs, b.data).(map[string]any)
}

// resolveColors 将颜色别名替换为 resources 中声明的色值。
func (b *builder) resolveColors(attrs map[string]any) map[string]any {
	for _, key := range []string{"color", "background", "border-color"} {
		if v, ok := attrs[key].(string); ok {
			if hex, ok := b.colors[v]; ok {
				attrs[key] = hex
			}
		}
	}
	return attrs
}

func (b *builder) errorf(cmd *dsl.Command, format string, args ...any) error {
	return fmt.Errorf("%w: %s at %s: %s", ErrScene, cmd.Name, cmd.Pos, fmt.Sprintf(format, args...))
}

func (b *builder) wrap(cmd *dsl.Command, err error) error {
	return fmt.Errorf("%w: %s at %s: %w", ErrScene, cmd.Name, cmd.Pos, err)
}
