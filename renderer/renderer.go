package renderer

import (
	"context"
	"errors"
	"io"

	"github.com/ByLCY/quire/layout"
)

// ErrEncoding 包装编码阶段产生的所有错误。
var ErrEncoding = errors.New("encoding failed")

// Encoder 将布局结果编码为最终文件（例如 PDF），按顺序写入 w。
// 同一个 Encoder 可被并发调用，每次调用使用独立的 w。
type Encoder interface {
	Encode(ctx context.Context, result *layout.Result, req layout.Request, w io.Writer) error
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(ctx context.Context, result *layout.Result, req layout.Request, w io.Writer) error

func (f EncoderFunc) Encode(ctx context.Context, result *layout.Result, req layout.Request, w io.Writer) error {
	return f(ctx, result, req, w)
}
