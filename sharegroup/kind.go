package sharegroup

import "fmt"

// Kind is the class of graphics object a native id belongs to. Ids are only
// unique within a kind.
type Kind uint8

const (
	Texture Kind = iota
	Buffer
	VertexArray
	Framebuffer
	Renderbuffer
	Program

	numKinds
)

// Kinds lists every kind in dump order.
var Kinds = [...]Kind{Texture, Buffer, VertexArray, Framebuffer, Renderbuffer, Program}

func (k Kind) String() string {
	switch k {
	case Texture:
		return "texture"
	case Buffer:
		return "buffer"
	case VertexArray:
		return "vertex-array"
	case Framebuffer:
		return "framebuffer"
	case Renderbuffer:
		return "renderbuffer"
	case Program:
		return "program"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Key identifies one object in a share group.
type Key struct {
	Kind Kind
	ID   uint32
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Kind, k.ID)
}

// Attachment is the depth/stencil object hanging off a framebuffer.
type Attachment struct {
	Kind Kind
	ID   uint32
}
