package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecodeFieldsRoundTripPreservesUnknown(t *testing.T) {
	in := []Field{
		NewU32(3, 400000),
		{ID: 250, Type: TypeBytes, Value: []byte{0xAA, 0xBB}}, // unknown field id
	}
	b, err := EncodeFields(nil, in)
	if err != nil {
		t.Fatalf("encode fields: %v", err)
	}
	out, err := DecodeFields(b)
	if err != nil {
		t.Fatalf("decode fields: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(out))
	}
	if v, err := out[0].U32(); err != nil || v != 400000 {
		t.Fatalf("u32 field: got %d, %v", v, err)
	}
	if out[1].ID != 250 || out[1].Type != TypeBytes || !bytes.Equal(out[1].Value, []byte{0xAA, 0xBB}) {
		t.Fatalf("unknown field not preserved: %+v", out[1])
	}
}

func TestDecodeFieldsMalformedHeaderIsDeterministic(t *testing.T) {
	_, err := DecodeFields([]byte{1, 2, 3})
	if !errors.Is(err, ErrShortFieldHeader) {
		t.Fatalf("expected ErrShortFieldHeader, got %v", err)
	}
}

func TestDecodeFieldsMalformedLengthIsDeterministic(t *testing.T) {
	// id=1, type=string, len=5, value only 2 bytes
	payload := []byte{1, TypeString, 0, 5, 'a', 'b'}
	_, err := DecodeFields(payload)
	if !errors.Is(err, ErrShortFieldValue) {
		t.Fatalf("expected ErrShortFieldValue, got %v", err)
	}
}

func TestEncodeFieldLayout(t *testing.T) {
	b, err := EncodeField(nil, NewU16(7, 0x1234))
	if err != nil {
		t.Fatalf("encode field: %v", err)
	}
	want := []byte{7, TypeU16, 0, 2, 0x12, 0x34}
	if !bytes.Equal(b, want) {
		t.Fatalf("encoded field %x, want %x", b, want)
	}
}

func TestAccessorTypeMismatch(t *testing.T) {
	f := NewBool(9, true)
	if _, err := f.U32(); !errors.Is(err, ErrFieldTypeMismatch) {
		t.Fatalf("expected ErrFieldTypeMismatch, got %v", err)
	}
	if v, err := f.Bool(); err != nil || !v {
		t.Fatalf("bool accessor: got %v, %v", v, err)
	}
}

func TestAccessorInvalidLength(t *testing.T) {
	f := Field{ID: 1, Type: TypeU32, Value: []byte{1, 2}}
	if _, err := f.U32(); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
}

func TestBoolRejectsNonCanonicalValue(t *testing.T) {
	f := Field{ID: 1, Type: TypeBool, Value: []byte{2}}
	if _, err := f.Bool(); err == nil {
		t.Fatalf("expected error for bool value 2")
	}
}

func TestGetFindsFirstMatch(t *testing.T) {
	fields := []Field{NewU8(1, 10), NewU8(2, 20), NewU8(2, 30)}
	f, ok := Get(fields, 2)
	if !ok {
		t.Fatalf("field 2 not found")
	}
	if v, _ := f.U8(); v != 20 {
		t.Fatalf("expected first match 20, got %d", v)
	}
	if _, ok := Get(fields, 99); ok {
		t.Fatalf("unexpected match for absent id")
	}
}

func TestEncodeFieldRejectsOversizedValue(t *testing.T) {
	f := Field{ID: 1, Type: TypeBytes, Value: make([]byte, MaxValueLen+1)}
	if _, err := EncodeField(nil, f); !errors.Is(err, ErrValueTooLong) {
		t.Fatalf("expected ErrValueTooLong, got %v", err)
	}
}
