package container_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/ByLCY/quire/blob"
	"github.com/ByLCY/quire/container"
	"github.com/ByLCY/quire/document"
	"github.com/ByLCY/quire/dsl"
	"github.com/ByLCY/quire/layout"
	"github.com/ByLCY/quire/renderer"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func chunkEncoder(chunks ...string) renderer.EncoderFunc {
	return func(_ context.Context, _ *layout.Result, _ layout.Request, w io.Writer) error {
		for _, c := range chunks {
			if _, err := io.WriteString(w, c); err != nil {
				return err
			}
		}
		return nil
	}
}

// stubLayouter records one geometry per node and fails while failures > 0.
type stubLayouter struct {
	failures atomic.Int32
	err      error
	calls    atomic.Int32
}

func (l *stubLayouter) Layout(_ context.Context, snap document.Snapshot, _ layout.Request) (*layout.Result, error) {
	l.calls.Add(1)
	if l.failures.Add(-1) >= 0 {
		return nil, l.err
	}
	res := &layout.Result{Nodes: map[document.NodeID]document.Geometry{}, Pages: []layout.Page{{Width: 210, Height: 297}}}
	snap.Root.Walk(func(n *document.Node) bool {
		res.Nodes[n.ID()] = document.Geometry{ID: n.ID(), Kind: n.Kind().String(), Width: 10, Height: 5}
		return true
	})
	return res, nil
}

type recorder struct {
	events []document.RenderEvent
}

func (r *recorder) observe(ev document.RenderEvent) { r.events = append(r.events, ev) }

// hello builds Document > Page > Text("Hello") and returns the text node.
func hello(t *testing.T, c *container.Container, observer document.Observer) *document.Node {
	t.Helper()
	tree := c.Tree()
	doc, err := tree.CreateNode(document.KindDocument, document.DocumentProps{OnRender: observer})
	require.NoError(t, err)
	page, err := tree.CreateNode(document.KindPage, nil)
	require.NoError(t, err)
	text, err := tree.CreateNode(document.KindText, document.TextProps{Content: "Hello"})
	require.NoError(t, err)
	require.NoError(t, tree.Attach(tree.Root(), doc))
	require.NoError(t, tree.Attach(doc, page))
	require.NoError(t, tree.Attach(page, text))
	return text
}

func TestToBufferHello(t *testing.T) {
	rec := &recorder{}
	c := container.New(
		container.WithLayouter(&stubLayouter{}),
		container.WithEncoder(chunkEncoder("%PDF-1.7\n", "body", "%%EOF")),
	)
	text := hello(t, c, rec.observe)
	require.True(t, c.IsDirty())
	require.Nil(t, c.LayoutData())

	out, err := c.ToBuffer(testContext(t), layout.Request{})
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7\nbody%%EOF", string(out))
	assert.False(t, c.IsDirty())

	require.Len(t, rec.events, 1)
	ev := rec.events[0]
	assert.Nil(t, ev.Blob)
	assert.Nil(t, ev.String)
	g, ok := ev.LayoutData.Geometry(text.ID())
	require.True(t, ok)
	assert.Equal(t, "TEXT", g.Kind)
	assert.Same(t, c.LayoutData(), ev.LayoutData)
}

func TestToBlobHandsBlobToObserver(t *testing.T) {
	rec := &recorder{}
	c := container.New(
		container.WithLayouter(&stubLayouter{}),
		container.WithEncoder(chunkEncoder("%PDF-", "1.7")),
	)
	hello(t, c, rec.observe)

	b, err := c.ToBlob(testContext(t), layout.Request{})
	require.NoError(t, err)
	assert.Equal(t, blob.MediaTypePDF, b.Type)
	assert.Equal(t, []byte("%PDF-1.7"), b.Bytes())

	require.Len(t, rec.events, 1)
	assert.Same(t, b, rec.events[0].Blob)
	assert.Nil(t, rec.events[0].String)
}

func TestToStringDecodesSplitMultibyteSequence(t *testing.T) {
	rec := &recorder{}
	c := container.New(
		container.WithLayouter(&stubLayouter{}),
		container.WithEncoder(chunkEncoder("h\xc3", "\xa9llo")),
	)
	hello(t, c, rec.observe)

	var progress []string
	s, err := c.ToString(testContext(t), layout.Request{}, container.WithProgress(func(p string) {
		progress = append(progress, p)
	}))
	require.NoError(t, err)
	assert.Equal(t, "héllo", s)
	assert.Equal(t, []string{"h", "héllo"}, progress)

	require.Len(t, rec.events, 1)
	require.NotNil(t, rec.events[0].String)
	assert.Equal(t, "héllo", *rec.events[0].String)
}

func TestToStringLatin1PreservesBytes(t *testing.T) {
	c := container.New(
		container.WithLayouter(&stubLayouter{}),
		container.WithEncoder(chunkEncoder("\xff\x00\x80")),
	)
	hello(t, c, nil)

	s, err := c.ToString(testContext(t), layout.Request{}, container.WithCharset(charmap.ISO8859_1))
	require.NoError(t, err)
	assert.Equal(t, []rune{0xff, 0x00, 0x80}, []rune(s))
}

func TestToStringRecoversPanics(t *testing.T) {
	c := container.New(
		container.WithLayouter(&stubLayouter{}),
		container.WithEncoder(chunkEncoder("x")),
	)
	hello(t, c, nil)

	_, err := c.ToString(testContext(t), layout.Request{}, container.WithProgress(func(string) {
		panic("boom")
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestFailedRenderKeepsDirtyAndRetrySucceeds(t *testing.T) {
	layoutErr := errors.New("layout exploded")
	l := &stubLayouter{err: layoutErr}
	l.failures.Store(1)
	rec := &recorder{}
	c := container.New(container.WithLayouter(l), container.WithEncoder(chunkEncoder("ok")))
	hello(t, c, rec.observe)

	_, err := c.ToBuffer(testContext(t), layout.Request{})
	require.ErrorIs(t, err, layoutErr)
	assert.True(t, c.IsDirty())
	assert.Nil(t, c.LayoutData())
	assert.Empty(t, rec.events)

	out, err := c.ToBuffer(testContext(t), layout.Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(out))
	assert.False(t, c.IsDirty())
	assert.Len(t, rec.events, 1)
}

func TestRepeatedRendersAreIdempotent(t *testing.T) {
	l := &stubLayouter{}
	c := container.New(container.WithLayouter(l), container.WithEncoder(chunkEncoder("same")))
	hello(t, c, nil)

	first, err := c.ToBuffer(testContext(t), layout.Request{})
	require.NoError(t, err)
	firstData := c.LayoutData()
	second, err := c.ToBuffer(testContext(t), layout.Request{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), l.calls.Load())
	assert.NotSame(t, firstData, c.LayoutData())
	assert.False(t, c.IsDirty())
}

type failingSink struct {
	err     error
	aborted error
}

func (s *failingSink) Write([]byte) (int, error) { return 0, s.err }

func (s *failingSink) Finish(context.Context) (blob.Assembly, error) {
	return blob.Assembly{}, errors.New("finish must not be called")
}

func (s *failingSink) Abort(err error) { s.aborted = err }

func TestToBlobReturnsSinkErrorVerbatim(t *testing.T) {
	sinkErr := errors.New("disk full")
	sink := &failingSink{err: sinkErr}
	rec := &recorder{}
	c := container.New(
		container.WithLayouter(&stubLayouter{}),
		container.WithEncoder(chunkEncoder("data")),
		container.WithSink(func(context.Context) (blob.Sink, error) { return sink, nil }),
	)
	hello(t, c, rec.observe)

	_, err := c.ToBlob(testContext(t), layout.Request{})
	require.Same(t, sinkErr, err)
	assert.Same(t, sinkErr, sink.aborted)
	assert.Empty(t, rec.events)
}

func TestObserverPanicIsReported(t *testing.T) {
	c := container.New(container.WithLayouter(&stubLayouter{}), container.WithEncoder(chunkEncoder("x")))
	hello(t, c, func(document.RenderEvent) { panic("observer") })

	_, err := c.ToBuffer(testContext(t), layout.Request{})
	require.ErrorIs(t, err, container.ErrObserverPanic)
	assert.False(t, c.IsDirty(), "render itself succeeded")
}

func TestDispatchWithoutDocumentIsNoop(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Dispatch(&layout.Result{}, container.Payload{}))
}

func TestRawRenderExposesHandleAndFuture(t *testing.T) {
	c := container.New(container.WithLayouter(&stubLayouter{}), container.WithEncoder(chunkEncoder("a", "b")))
	hello(t, c, nil)

	h, f := c.Render(testContext(t), layout.Request{})
	data, err := io.ReadAll(h.Reader(testContext(t)))
	require.NoError(t, err)
	assert.Equal(t, "ab", string(data))
	res, err := f.Wait(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, 1, res.PageCount())
}

func TestUpdateAndRenderWithDefaultEngine(t *testing.T) {
	doc, err := dsl.ParseString(`doc Greeting v1 {
  meta {
    title: "Greeting"
  }
  page A4 padding 20mm {
    text size 14pt { "Hello, ${name}!" }
  }
}`)
	require.NoError(t, err)

	c := container.New()
	require.NoError(t, c.Update(doc, map[string]any{"name": "Quire"}))
	require.True(t, c.IsDirty())

	out, err := c.ToBuffer(testContext(t), layout.Request{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF-"), "unexpected header %q", out[:min(len(out), 8)])
	assert.False(t, c.IsDirty())

	res := c.LayoutData()
	require.NotNil(t, res)
	assert.Equal(t, 1, res.PageCount())
	assert.Equal(t, "Greeting", res.Meta.Title)
}

// textEncoder writes the content of every laid out text box, one per line.
func textEncoder(_ context.Context, res *layout.Result, _ layout.Request, w io.Writer) error {
	for _, page := range res.Pages {
		for _, tb := range page.Texts {
			if _, err := io.WriteString(w, tb.Content+"\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

// gatedEncoder blocks its first call until release is closed.
type gatedEncoder struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (e *gatedEncoder) Encode(ctx context.Context, _ *layout.Result, _ layout.Request, w io.Writer) error {
	if e.calls.Add(1) == 1 {
		close(e.started)
		select {
		case <-e.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	_, err := io.WriteString(w, "%PDF-")
	return err
}

func TestSlowOlderRenderKeepsNewerLayout(t *testing.T) {
	ctx := testContext(t)
	enc := &gatedEncoder{started: make(chan struct{}), release: make(chan struct{})}
	c := container.New(container.WithLayouter(&stubLayouter{}), container.WithEncoder(enc))
	text := hello(t, c, nil)

	_, slow := c.Render(ctx, layout.Request{})
	<-enc.started

	extra, err := c.Tree().CreateNode(document.KindText, document.TextProps{Content: "late"})
	require.NoError(t, err)
	require.NoError(t, c.Tree().Attach(text.Parent(), extra))

	_, err = c.ToBuffer(ctx, layout.Request{})
	require.NoError(t, err)
	require.False(t, c.IsDirty())
	newest := c.LayoutData()
	_, ok := newest.Geometry(extra.ID())
	require.True(t, ok)

	close(enc.release)
	stale, err := slow.Wait(ctx)
	require.NoError(t, err)
	_, ok = stale.Geometry(extra.ID())
	require.False(t, ok, "first render saw the tree before the extra node")

	assert.False(t, c.IsDirty())
	assert.Same(t, newest, c.LayoutData())
}

func TestToStringCarriesTextContent(t *testing.T) {
	rec := &recorder{}
	c := container.New(container.WithEncoder(renderer.EncoderFunc(textEncoder)))
	hello(t, c, rec.observe)

	s, err := c.ToString(testContext(t), layout.Request{})
	require.NoError(t, err)
	assert.Contains(t, s, "Hello")
	assert.False(t, c.IsDirty())
	require.NotNil(t, c.LayoutData())

	require.Len(t, rec.events, 1)
	require.NotNil(t, rec.events[0].String)
	assert.Equal(t, s, *rec.events[0].String)
}

func TestAdaptersAgreeOnDefaultEngine(t *testing.T) {
	ctx := testContext(t)
	c := container.New()
	hello(t, c, nil)

	buf, err := c.ToBuffer(ctx, layout.Request{})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(buf), "%PDF-"))

	b, err := c.ToBlob(ctx, layout.Request{})
	require.NoError(t, err)
	assert.Equal(t, buf, b.Bytes())

	s, err := c.ToString(ctx, layout.Request{}, container.WithCharset(charmap.ISO8859_1))
	require.NoError(t, err)
	raw, err := charmap.ISO8859_1.NewEncoder().String(s)
	require.NoError(t, err)
	assert.Equal(t, buf, []byte(raw))

	again, err := c.ToBuffer(ctx, layout.Request{})
	require.NoError(t, err)
	assert.Equal(t, buf, again)
}
