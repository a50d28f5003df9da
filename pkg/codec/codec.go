package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
)

// Encode packs t as a leading big-endian double followed by value encoded
// against shape, and returns the resulting payload.
//
// value must match shape's arity: a bare scalar for a single-character
// struct shape, a []any (or any slice/array via reflection) of fields for a
// multi-character struct shape or a record, and a []any of elements for an
// array.
func Encode(shape Shape, t float64, value any) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, t); err != nil {
		return nil, err
	}
	if err := encodeValue(&buf, shape, value, true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode unpacks a payload produced by Encode against shape, returning the
// leading timestamp and the decoded value.
//
// Single-field struct shapes decode to a bare scalar rather than a
// length-one tuple; multi-field struct shapes and records decode to []any.
func Decode(shape Shape, data []byte) (float64, any, error) {
	if len(data) < 8 {
		return 0, nil, fmt.Errorf("%w: payload shorter than the leading timestamp", ErrTruncatedPayload)
	}
	t := math.Float64frombits(binary.BigEndian.Uint64(data[:8]))
	value, _, err := decodeValue(shape, data, 8, true)
	if err != nil {
		return 0, nil, err
	}
	return t, value, nil
}

func encodeValue(buf *bytes.Buffer, shape Shape, value any, topLevel bool) error {
	switch shape.Kind {
	case KindStruct:
		return encodeStruct(buf, shape.Struct, value)
	case KindString:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: expected a string, got %T", ErrBadShape, value)
		}
		data := []byte(s)
		if !topLevel {
			if err := binary.Write(buf, binary.BigEndian, uint32(len(data))); err != nil {
				return err
			}
		}
		buf.Write(data)
		return nil
	case KindArray:
		items, err := toSlice(value)
		if err != nil {
			return err
		}
		if !topLevel {
			if err := binary.Write(buf, binary.BigEndian, uint32(len(items))); err != nil {
				return err
			}
		}
		for _, it := range items {
			if err := encodeValue(buf, *shape.Elem, it, false); err != nil {
				return err
			}
		}
		return nil
	case KindRecord:
		items, err := toSlice(value)
		if err != nil {
			return err
		}
		if len(items) != len(shape.Fields) {
			return fmt.Errorf("%w: record expects %d fields, got %d", ErrBadShape, len(shape.Fields), len(items))
		}
		for i, f := range shape.Fields {
			if err := encodeValue(buf, f.Shape, items[i], false); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown shape kind", ErrBadShape)
	}
}

func encodeStruct(buf *bytes.Buffer, codes string, value any) error {
	if codes == "" {
		return fmt.Errorf("%w: empty struct shape", ErrBadShape)
	}
	if len(codes) == 1 {
		return encodeStructField(buf, codes[0], value)
	}
	items, err := toSlice(value)
	if err != nil {
		return err
	}
	if len(items) != len(codes) {
		return fmt.Errorf("%w: struct shape %q expects %d fields, got %d", ErrBadShape, codes, len(codes), len(items))
	}
	for i := 0; i < len(codes); i++ {
		if err := encodeStructField(buf, codes[i], items[i]); err != nil {
			return err
		}
	}
	return nil
}

func encodeStructField(buf *bytes.Buffer, code byte, value any) error {
	switch code {
	case 'b':
		n, err := asInt64(value)
		if err != nil {
			return err
		}
		if n < math.MinInt8 || n > math.MaxInt8 {
			return fmt.Errorf("%w: %d does not fit in int8", ErrOverflow, n)
		}
		return binary.Write(buf, binary.BigEndian, int8(n))
	case 'B':
		n, err := asUint64(value)
		if err != nil {
			return err
		}
		if n > math.MaxUint8 {
			return fmt.Errorf("%w: %d does not fit in uint8", ErrOverflow, n)
		}
		return binary.Write(buf, binary.BigEndian, uint8(n))
	case '?':
		b, err := asBool(value)
		if err != nil {
			return err
		}
		return binary.Write(buf, binary.BigEndian, b)
	case 'h':
		n, err := asInt64(value)
		if err != nil {
			return err
		}
		if n < math.MinInt16 || n > math.MaxInt16 {
			return fmt.Errorf("%w: %d does not fit in int16", ErrOverflow, n)
		}
		return binary.Write(buf, binary.BigEndian, int16(n))
	case 'H':
		n, err := asUint64(value)
		if err != nil {
			return err
		}
		if n > math.MaxUint16 {
			return fmt.Errorf("%w: %d does not fit in uint16", ErrOverflow, n)
		}
		return binary.Write(buf, binary.BigEndian, uint16(n))
	case 'i':
		n, err := asInt64(value)
		if err != nil {
			return err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return fmt.Errorf("%w: %d does not fit in int32", ErrOverflow, n)
		}
		return binary.Write(buf, binary.BigEndian, int32(n))
	case 'I':
		n, err := asUint64(value)
		if err != nil {
			return err
		}
		if n > math.MaxUint32 {
			return fmt.Errorf("%w: %d does not fit in uint32", ErrOverflow, n)
		}
		return binary.Write(buf, binary.BigEndian, uint32(n))
	case 'q':
		n, err := asInt64(value)
		if err != nil {
			return err
		}
		return binary.Write(buf, binary.BigEndian, n)
	case 'Q':
		n, err := asUint64(value)
		if err != nil {
			return err
		}
		return binary.Write(buf, binary.BigEndian, n)
	case 'f':
		f, err := asFloat64(value)
		if err != nil {
			return err
		}
		return binary.Write(buf, binary.BigEndian, float32(f))
	case 'd':
		f, err := asFloat64(value)
		if err != nil {
			return err
		}
		return binary.Write(buf, binary.BigEndian, f)
	default:
		return fmt.Errorf("%w: unknown type code %q", ErrBadShape, code)
	}
}

func decodeValue(shape Shape, data []byte, offset int, topLevel bool) (any, int, error) {
	switch shape.Kind {
	case KindStruct:
		return decodeStruct(shape.Struct, data, offset)
	case KindString:
		strLen := len(data) - offset
		if !topLevel {
			n, err := readUint32(data, offset)
			if err != nil {
				return nil, 0, err
			}
			offset += 4
			strLen = int(n)
		}
		if strLen < 0 || offset+strLen > len(data) {
			return nil, 0, fmt.Errorf("%w: string exceeds payload bounds", ErrTruncatedPayload)
		}
		s := string(data[offset : offset+strLen])
		return s, offset + strLen, nil
	case KindArray:
		if shape.Elem.Kind != KindStruct {
			return nil, 0, fmt.Errorf("%w: array element must be a struct shape", ErrBadShape)
		}
		elemSize, err := structByteSize(shape.Elem.Struct)
		if err != nil {
			return nil, 0, err
		}
		var count int
		if topLevel {
			if elemSize == 0 {
				return nil, 0, fmt.Errorf("%w: top-level array requires a non-empty element shape", ErrBadShape)
			}
			remaining := len(data) - offset
			if remaining%elemSize != 0 {
				return nil, 0, fmt.Errorf("%w: payload does not divide evenly into array elements", ErrTruncatedPayload)
			}
			count = remaining / elemSize
		} else {
			n, err := readUint32(data, offset)
			if err != nil {
				return nil, 0, err
			}
			offset += 4
			count = int(n)
		}
		items := make([]any, 0, count)
		for i := 0; i < count; i++ {
			v, newOffset, err := decodeValue(*shape.Elem, data, offset, false)
			if err != nil {
				return nil, 0, err
			}
			offset = newOffset
			items = append(items, v)
		}
		return items, offset, nil
	case KindRecord:
		items := make([]any, 0, len(shape.Fields))
		for _, f := range shape.Fields {
			v, newOffset, err := decodeValue(f.Shape, data, offset, false)
			if err != nil {
				return nil, 0, err
			}
			offset = newOffset
			items = append(items, v)
		}
		return items, offset, nil
	default:
		return nil, 0, fmt.Errorf("%w: unknown shape kind", ErrBadShape)
	}
}

func decodeStruct(codes string, data []byte, offset int) (any, int, error) {
	if codes == "" {
		return nil, 0, fmt.Errorf("%w: empty struct shape", ErrBadShape)
	}
	values := make([]any, 0, len(codes))
	for i := 0; i < len(codes); i++ {
		v, newOffset, err := decodeStructField(codes[i], data, offset)
		if err != nil {
			return nil, 0, err
		}
		offset = newOffset
		values = append(values, v)
	}
	if len(values) == 1 {
		return values[0], offset, nil
	}
	return values, offset, nil
}

func decodeStructField(code byte, data []byte, offset int) (any, int, error) {
	size, err := structCharSize(code)
	if err != nil {
		return nil, 0, err
	}
	if offset+size > len(data) {
		return nil, 0, fmt.Errorf("%w: field %q needs %d bytes at offset %d", ErrTruncatedPayload, string(code), size, offset)
	}
	switch code {
	case 'b':
		return int8(data[offset]), offset + 1, nil
	case 'B':
		return data[offset], offset + 1, nil
	case '?':
		return data[offset] != 0, offset + 1, nil
	case 'h':
		return int16(binary.BigEndian.Uint16(data[offset:])), offset + 2, nil
	case 'H':
		return binary.BigEndian.Uint16(data[offset:]), offset + 2, nil
	case 'i':
		return int32(binary.BigEndian.Uint32(data[offset:])), offset + 4, nil
	case 'I':
		return binary.BigEndian.Uint32(data[offset:]), offset + 4, nil
	case 'f':
		return math.Float32frombits(binary.BigEndian.Uint32(data[offset:])), offset + 4, nil
	case 'q':
		return int64(binary.BigEndian.Uint64(data[offset:])), offset + 8, nil
	case 'Q':
		return binary.BigEndian.Uint64(data[offset:]), offset + 8, nil
	case 'd':
		return math.Float64frombits(binary.BigEndian.Uint64(data[offset:])), offset + 8, nil
	default:
		return nil, 0, fmt.Errorf("%w: unknown type code %q", ErrBadShape, code)
	}
}

func readUint32(data []byte, offset int) (uint32, error) {
	if offset+4 > len(data) {
		return 0, fmt.Errorf("%w: length prefix truncated at offset %d", ErrTruncatedPayload, offset)
	}
	return binary.BigEndian.Uint32(data[offset:]), nil
}

// NumericValue coerces a decoded scalar (any integer width, float32/64, or
// bool) to a float64 for use in aggregate statistics. Booleans count as 0/1.
func NumericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case int8:
		return float64(n), true
	case uint8:
		return float64(n), true
	case int16:
		return float64(n), true
	case uint16:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func toSlice(value any) ([]any, error) {
	if v, ok := value.([]any); ok {
		return v, nil
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("%w: expected a slice, got %T", ErrBadShape, value)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func asInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d does not fit in int64", ErrOverflow, v)
		}
		return int64(v), nil
	case float32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%w: cannot use %T as an integer", ErrBadShape, value)
	}
}

func asUint64(value any) (uint64, error) {
	switch v := value.(type) {
	case int:
		if v < 0 {
			return 0, fmt.Errorf("%w: negative value %d for unsigned field", ErrOverflow, v)
		}
		return uint64(v), nil
	case int8:
		if v < 0 {
			return 0, fmt.Errorf("%w: negative value %d for unsigned field", ErrOverflow, v)
		}
		return uint64(v), nil
	case int16:
		if v < 0 {
			return 0, fmt.Errorf("%w: negative value %d for unsigned field", ErrOverflow, v)
		}
		return uint64(v), nil
	case int32:
		if v < 0 {
			return 0, fmt.Errorf("%w: negative value %d for unsigned field", ErrOverflow, v)
		}
		return uint64(v), nil
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("%w: negative value %d for unsigned field", ErrOverflow, v)
		}
		return uint64(v), nil
	case uint:
		return uint64(v), nil
	case uint8:
		return uint64(v), nil
	case uint16:
		return uint64(v), nil
	case uint32:
		return uint64(v), nil
	case uint64:
		return v, nil
	case float32:
		if v < 0 {
			return 0, fmt.Errorf("%w: negative value %v for unsigned field", ErrOverflow, v)
		}
		return uint64(v), nil
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("%w: negative value %v for unsigned field", ErrOverflow, v)
		}
		return uint64(v), nil
	default:
		return 0, fmt.Errorf("%w: cannot use %T as an unsigned integer", ErrBadShape, value)
	}
}

func asFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%w: cannot use %T as a float", ErrBadShape, value)
	}
}

func asBool(value any) (bool, error) {
	b, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("%w: cannot use %T as a bool", ErrBadShape, value)
	}
	return b, nil
}
