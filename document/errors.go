package document

import "errors"

// Tree construction errors. They are always returned to the mutating caller.
var (
	ErrInvalidNodeKind  = errors.New("document: invalid node kind")
	ErrCyclicAttachment = errors.New("document: cyclic attachment")
	ErrNotAChild        = errors.New("document: node is not a child of parent")
	ErrPropsMismatch    = errors.New("document: props do not match node kind")
	ErrForeignNode      = errors.New("document: node belongs to another tree")
	ErrNilNode          = errors.New("document: nil node")
	ErrDuplicateNode    = errors.New("document: node listed more than once")
)
