package container

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ByLCY/quire/blob"
	"github.com/ByLCY/quire/layout"
)

// ToBuffer renders the tree and returns the concatenated output once both the
// byte stream and the layout have completed. Render errors are returned unchanged.
func (c *Container) ToBuffer(ctx context.Context, req layout.Request) ([]byte, error) {
	h, f := c.pipeline.Render(ctx, req)

	var buf bytes.Buffer
	for chunk, err := range h.Chunks(ctx) {
		if err != nil {
			return nil, err
		}
		buf.Write(chunk)
	}
	res, err := f.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Dispatch(res, Payload{}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToBlob renders the tree through the configured sink and returns the assembled
// blob tagged as PDF. Render and sink errors are returned unchanged.
func (c *Container) ToBlob(ctx context.Context, req layout.Request) (*blob.Blob, error) {
	sink, err := c.newSink(ctx)
	if err != nil {
		return nil, err
	}
	h, f := c.pipeline.Render(ctx, req)

	if _, err := io.Copy(sink, h.Reader(ctx)); err != nil {
		sink.Abort(err)
		return nil, err
	}
	asm, err := sink.Finish(ctx)
	if err != nil {
		return nil, err
	}
	res, err := f.Wait(ctx)
	if err != nil {
		return nil, err
	}
	b := asm.ToBlob(blob.MediaTypePDF)
	if err := c.Dispatch(res, Payload{Blob: b}); err != nil {
		return nil, err
	}
	return b, nil
}

type stringOptions struct {
	charset  encoding.Encoding
	progress func(partial string)
}

// StringOption configures ToString.
type StringOption func(*stringOptions)

// WithCharset decodes the byte stream with enc instead of UTF-8.
// charmap.ISO8859_1 maps every byte to one rune and so preserves binary output.
func WithCharset(enc encoding.Encoding) StringOption {
	return func(o *stringOptions) {
		if enc != nil {
			o.charset = enc
		}
	}
}

// WithProgress is called with the decoded prefix after every chunk.
func WithProgress(fn func(partial string)) StringOption {
	return func(o *stringOptions) { o.progress = fn }
}

// ToString renders the tree and decodes chunks as they arrive. A multi-byte
// sequence split across chunks is held back until its remaining bytes arrive.
// The default UTF-8 decoding replaces invalid bytes with U+FFFD, so binary
// output such as a compressed PDF does not survive it. Pass
// WithCharset(charmap.ISO8859_1) to get a string whose bytes round-trip.
// Panics raised while consuming the stream are returned as errors.
func (c *Container) ToString(ctx context.Context, req layout.Request, opts ...StringOption) (s string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("consume render output: panic: %v", rec)
		}
	}()

	o := stringOptions{charset: unicode.UTF8}
	for _, opt := range opts {
		opt(&o)
	}

	var sb strings.Builder
	w := transform.NewWriter(&sb, o.charset.NewDecoder())
	h, f := c.pipeline.Render(ctx, req)
	for chunk, err := range h.Chunks(ctx) {
		if err != nil {
			return "", err
		}
		if _, err := w.Write(chunk); err != nil {
			return "", fmt.Errorf("decode render output: %w", err)
		}
		if o.progress != nil {
			o.progress(sb.String())
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("decode render output: %w", err)
	}

	res, err := f.Wait(ctx)
	if err != nil {
		return "", err
	}
	out := sb.String()
	if err := c.Dispatch(res, Payload{String: &out}); err != nil {
		return "", err
	}
	return out, nil
}
