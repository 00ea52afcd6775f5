package document

import (
	"fmt"
	"strings"
)

// Kind tags a node with its element type.
type Kind int

const (
	KindRoot Kind = iota
	KindDocument
	KindPage
	KindView
	KindText
	KindLink
	KindNote
	KindImage
	KindCanvas
)

var kindNames = map[Kind]string{
	KindRoot:     "ROOT",
	KindDocument: "DOCUMENT",
	KindPage:     "PAGE",
	KindView:     "VIEW",
	KindText:     "TEXT",
	KindLink:     "LINK",
	KindNote:     "NOTE",
	KindImage:    "IMAGE",
	KindCanvas:   "CANVAS",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Creatable reports whether nodes of this kind may be created by callers.
// Root is allocated once by the tree itself.
func (k Kind) Creatable() bool {
	return k > KindRoot && k <= KindCanvas
}

// ParseKind maps a tag such as "VIEW" or "text" to its Kind.
func ParseKind(tag string) (Kind, error) {
	upper := strings.ToUpper(strings.TrimSpace(tag))
	for k, name := range kindNames {
		if name == upper && k.Creatable() {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidNodeKind, tag)
}
