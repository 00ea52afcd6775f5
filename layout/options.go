package layout

import (
	"errors"
	"log/slog"
)

// Layout errors. Every error returned by Engine.Layout wraps ErrLayout.
var (
	ErrLayout     = errors.New("layout failed")
	ErrNoDocument = errors.New("root has no document node")
	ErrNoPage     = errors.New("document has no page node")
)

// Request 描述单次渲染的只读配置，由调用方按值传入，布局与编码都不会修改它。
type Request struct {
	PageSize    string       // Page 节点未声明 size 时使用，默认 A4
	Orientation string       // portrait（默认）/landscape
	Debug       DebugOptions // 调试输出
}

// DebugOptions 控制调试相关输出。
type DebugOptions struct {
	RawUnits bool // 在调试 JSON 中输出 debug.rawUnits 影子字段
}

// Typesetter 负责根据字体与宽度约束将文本拆成可绘制的行。
// 约定：width/fontSize/lineHeight 入参均为毫米（mm）。
type Typesetter interface {
	LayoutLines(content string, width float64, font FontResource, fontSize float64, lineHeight float64, wrap string) ([]TextLine, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithBaseDir sets the directory used to resolve relative image paths.
func WithBaseDir(dir string) Option {
	return func(e *Engine) { e.baseDir = dir }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}
