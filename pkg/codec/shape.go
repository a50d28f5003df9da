// Package codec implements the big-endian binary shape grammar used to pack
// and unpack measurement and command payloads, mirroring the wire format
// produced by flight hardware and decoded server-side.
package codec

import (
	"fmt"
	"strings"
)

// Kind identifies the category of a Shape node.
type Kind int

const (
	// KindStruct is a fixed-layout tuple of scalar fields, each drawn from
	// the type-code alphabet {b,B,h,H,i,I,q,Q,f,d,?}.
	KindStruct Kind = iota
	// KindArray is a repeated sequence of a single element Shape.
	KindArray
	// KindString is a UTF-8 byte string.
	KindString
	// KindRecord is a heterogeneous, ordered list of named fields, each
	// with its own Shape. Records have no textual form; build them with
	// NewRecordShape.
	KindRecord
)

// Field is one named member of a KindRecord shape.
type Field struct {
	Name  string
	Shape Shape
}

// Shape describes the binary layout of a measurement or command payload.
//
// Grammar:
//
//	struct-shape := one or more of b B h H i I q Q f d ?
//	array        := "[" shape "]"          (shape must itself be a struct-shape)
//	string       := "[str]"
//
// Top-level array/string lengths are inferred from the remaining payload
// bytes; nested occurrences (inside a record or another array) are
// preceded by a big-endian uint32 length prefix.
type Shape struct {
	Kind   Kind
	Struct string
	Elem   *Shape
	Fields []Field
}

// NewStructShape returns a struct-shape Shape for the given type-code string.
func NewStructShape(codes string) Shape {
	return Shape{Kind: KindStruct, Struct: codes}
}

// NewArrayShape returns a repeated-array shape over elem. elem must be a
// struct shape; this is enforced at encode/decode time.
func NewArrayShape(elem Shape) Shape {
	return Shape{Kind: KindArray, Elem: &elem}
}

// StringShape is the UTF-8 string shape ("[str]").
var StringShape = Shape{Kind: KindString}

// NewRecordShape returns a heterogeneous record shape, encoded in
// declaration order with no padding between fields.
func NewRecordShape(fields ...Field) Shape {
	return Shape{Kind: KindRecord, Fields: fields}
}

// IsNumericScalar reports whether shape decodes to a single numeric or
// boolean value, as opposed to a tuple, array, string, or record. Aggregate
// statistics (min/avg/max) are only meaningful for numeric scalars.
func (s Shape) IsNumericScalar() bool {
	return s.Kind == KindStruct && len(s.Struct) == 1
}

// ParseShape parses the textual shape grammar: a struct-shape string, an
// array "[shape]", or the string shape "[str]". Record shapes have no
// textual form; construct them with NewRecordShape.
func ParseShape(s string) (Shape, error) {
	if s == "" {
		return Shape{}, fmt.Errorf("%w: empty shape", ErrBadShape)
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		inner := s[1 : len(s)-1]
		if inner == "str" {
			return StringShape, nil
		}
		elem, err := ParseShape(inner)
		if err != nil {
			return Shape{}, err
		}
		if elem.Kind != KindStruct {
			return Shape{}, fmt.Errorf("%w: array element %q must be a struct shape", ErrBadShape, inner)
		}
		return NewArrayShape(elem), nil
	}
	for i := 0; i < len(s); i++ {
		if _, err := structCharSize(s[i]); err != nil {
			return Shape{}, fmt.Errorf("%w: %q", ErrBadShape, s)
		}
	}
	return NewStructShape(s), nil
}

// String renders the textual form of shape, where one exists.
func (s Shape) String() string {
	switch s.Kind {
	case KindStruct:
		return s.Struct
	case KindString:
		return "[str]"
	case KindArray:
		return "[" + s.Elem.String() + "]"
	case KindRecord:
		names := make([]string, len(s.Fields))
		for i, f := range s.Fields {
			names[i] = f.Name + ":" + f.Shape.String()
		}
		return "{" + strings.Join(names, ",") + "}"
	default:
		return "?"
	}
}

func structCharSize(c byte) (int, error) {
	switch c {
	case 'b', 'B', '?':
		return 1, nil
	case 'h', 'H':
		return 2, nil
	case 'i', 'I', 'f':
		return 4, nil
	case 'q', 'Q', 'd':
		return 8, nil
	default:
		return 0, fmt.Errorf("%w: unknown type code %q", ErrBadShape, c)
	}
}

func structByteSize(codes string) (int, error) {
	total := 0
	for i := 0; i < len(codes); i++ {
		n, err := structCharSize(codes[i])
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
