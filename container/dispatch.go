package container

import (
	"errors"
	"fmt"

	"github.com/ByLCY/quire/blob"
	"github.com/ByLCY/quire/document"
)

// ErrObserverPanic wraps a panic raised by a render observer.
var ErrObserverPanic = errors.New("render observer panicked")

// Payload is the adapter-specific value handed to the observer next to the layout data.
// The buffer path passes the zero Payload.
type Payload struct {
	Blob   *blob.Blob
	String *string
}

// Dispatch calls the Document's OnRender observer synchronously with data merged with payload.
// Without a Document or an observer it does nothing. The observer is read from the live
// tree at call time, so an observer installed during a render sees that render's result.
func (c *Container) Dispatch(data document.LayoutData, payload Payload) (err error) {
	doc := c.tree.Document()
	if doc == nil {
		return nil
	}
	props, ok := doc.Props().(document.DocumentProps)
	if !ok || props.OnRender == nil {
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrObserverPanic, rec)
			c.logger.Error("render observer panicked", "panic", rec)
		}
	}()
	props.OnRender(document.RenderEvent{
		LayoutData: data,
		Blob:       payload.Blob,
		String:     payload.String,
	})
	return nil
}
