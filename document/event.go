package document

import "github.com/ByLCY/quire/blob"

// Geometry is the computed box of one node. Coordinates are millimetres from the
// top-left corner of the physical page the node starts on.
type Geometry struct {
	ID      NodeID  `json:"id"`
	Kind    string  `json:"kind"`
	Page    int     `json:"page"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Content string  `json:"content,omitempty"`
	Href    string  `json:"href,omitempty"`
}

// LayoutData gives observers read access to a finished layout pass.
type LayoutData interface {
	Geometry(id NodeID) (Geometry, bool)
	PageCount() int
}

// RenderEvent is passed to the document observer after a successful render.
// Blob is set by the blob adapter, String by the string adapter; the buffer adapter sets neither.
type RenderEvent struct {
	LayoutData LayoutData
	Blob       *blob.Blob
	String     *string
}

// Observer is registered through DocumentProps.OnRender.
type Observer func(RenderEvent)
