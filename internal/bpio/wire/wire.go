// Package wire implements the field encoding shared by every message the
// instrument understands. A payload is a sequence of fields, each with a
// one-byte ID, a one-byte type tag and a big-endian u16 value length.
// Decoders keep unknown IDs so newer firmware can add fields without
// breaking older clients.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderLen is the fixed per-field header size: ID, type, value length.
const HeaderLen = 4

// MaxValueLen is the largest value a single field can carry.
const MaxValueLen = 0xFFFF

var (
	ErrShortFieldHeader  = errors.New("wire: short field header")
	ErrShortFieldValue   = errors.New("wire: short field value")
	ErrValueTooLong      = errors.New("wire: field value exceeds u16 length")
	ErrFieldTypeMismatch = errors.New("wire: field type mismatch")
	ErrInvalidLength     = errors.New("wire: invalid value length for type")
)

// Type IDs from the field contract.
const (
	TypeU8     uint8 = 1
	TypeU16    uint8 = 2
	TypeU32    uint8 = 3
	TypeBool   uint8 = 4
	TypeString uint8 = 5
	TypeBytes  uint8 = 6
)

// Field is one decoded field.
type Field struct {
	ID    uint8
	Type  uint8
	Value []byte
}

// NewU8 creates a uint8 field.
func NewU8(id uint8, v uint8) Field {
	return Field{ID: id, Type: TypeU8, Value: []byte{v}}
}

// NewU16 creates a uint16 field.
func NewU16(id uint8, v uint16) Field {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, v)
	return Field{ID: id, Type: TypeU16, Value: buf}
}

// NewU32 creates a uint32 field.
func NewU32(id uint8, v uint32) Field {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return Field{ID: id, Type: TypeU32, Value: buf}
}

// NewBool creates a bool field.
func NewBool(id uint8, v bool) Field {
	b := byte(0)
	if v {
		b = 1
	}
	return Field{ID: id, Type: TypeBool, Value: []byte{b}}
}

// NewString creates a string field.
func NewString(id uint8, v string) Field {
	return Field{ID: id, Type: TypeString, Value: []byte(v)}
}

// NewBytes creates a bytes field. The value is copied.
func NewBytes(id uint8, v []byte) Field {
	buf := make([]byte, len(v))
	copy(buf, v)
	return Field{ID: id, Type: TypeBytes, Value: buf}
}

// EncodeField appends the encoded form of f to dst.
func EncodeField(dst []byte, f Field) ([]byte, error) {
	if len(f.Value) > MaxValueLen {
		return dst, fmt.Errorf("%w: field %d carries %d bytes", ErrValueTooLong, f.ID, len(f.Value))
	}
	dst = append(dst, f.ID, f.Type)
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(f.Value)))
	return append(dst, f.Value...), nil
}

// EncodeFields appends the encoded form of every field to dst, in order.
func EncodeFields(dst []byte, fields []Field) ([]byte, error) {
	var err error
	for _, f := range fields {
		if dst, err = EncodeField(dst, f); err != nil {
			return dst, err
		}
	}
	return dst, nil
}

// DecodeFields parses payload into its fields. Values are copied out of
// payload so callers may reuse the backing buffer.
func DecodeFields(payload []byte) ([]Field, error) {
	fields := make([]Field, 0, 8)
	i := 0
	for i < len(payload) {
		if len(payload)-i < HeaderLen {
			return nil, ErrShortFieldHeader
		}
		id := payload[i]
		typeID := payload[i+1]
		l := int(binary.BigEndian.Uint16(payload[i+2 : i+4]))
		i += HeaderLen
		if len(payload)-i < l {
			return nil, ErrShortFieldValue
		}
		val := make([]byte, l)
		copy(val, payload[i:i+l])
		i += l
		fields = append(fields, Field{ID: id, Type: typeID, Value: val})
	}
	return fields, nil
}

// Get returns the first field with the given ID.
func Get(fields []Field, id uint8) (Field, bool) {
	for _, f := range fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// All returns every field with the given ID, in payload order. Repeated
// fields encode one value per occurrence.
func All(fields []Field, id uint8) []Field {
	var out []Field
	for _, f := range fields {
		if f.ID == id {
			out = append(out, f)
		}
	}
	return out
}

// U8 returns the field value as uint8.
func (f Field) U8() (uint8, error) {
	if f.Type != TypeU8 {
		return 0, ErrFieldTypeMismatch
	}
	if len(f.Value) != 1 {
		return 0, ErrInvalidLength
	}
	return f.Value[0], nil
}

// U16 returns the field value as uint16.
func (f Field) U16() (uint16, error) {
	if f.Type != TypeU16 {
		return 0, ErrFieldTypeMismatch
	}
	if len(f.Value) != 2 {
		return 0, ErrInvalidLength
	}
	return binary.BigEndian.Uint16(f.Value), nil
}

// U32 returns the field value as uint32.
func (f Field) U32() (uint32, error) {
	if f.Type != TypeU32 {
		return 0, ErrFieldTypeMismatch
	}
	if len(f.Value) != 4 {
		return 0, ErrInvalidLength
	}
	return binary.BigEndian.Uint32(f.Value), nil
}

// Bool returns the field value as bool.
func (f Field) Bool() (bool, error) {
	if f.Type != TypeBool {
		return false, ErrFieldTypeMismatch
	}
	if len(f.Value) != 1 {
		return false, ErrInvalidLength
	}
	switch f.Value[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, errors.New("wire: invalid bool value")
	}
}

// String returns the field value as string.
func (f Field) String() (string, error) {
	if f.Type != TypeString {
		return "", ErrFieldTypeMismatch
	}
	return string(f.Value), nil
}

// Bytes returns a copy of the field value as bytes.
func (f Field) Bytes() ([]byte, error) {
	if f.Type != TypeBytes {
		return nil, ErrFieldTypeMismatch
	}
	buf := make([]byte, len(f.Value))
	copy(buf, f.Value)
	return buf, nil
}
