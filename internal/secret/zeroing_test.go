package secret

import (
	"bytes"
	"testing"
)

func TestZero(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	Zero(data)

	for i, b := range data {
		if b != 0 {
			t.Errorf("Zero: byte %d = %d; want 0", i, b)
		}
	}
}

func TestZeroEmpty(t *testing.T) {
	Zero(nil)
	Zero([]byte{})
}

func TestZeroAll(t *testing.T) {
	a := []byte{1, 2, 3}
	b := []byte{4, 5, 6, 7}

	ZeroAll(a, b)

	if !bytes.Equal(a, make([]byte, len(a))) {
		t.Error("a should be zeroed")
	}
	if !bytes.Equal(b, make([]byte, len(b))) {
		t.Error("b should be zeroed")
	}
}

func TestBytes(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	sb := NewBytes(data)

	if !bytes.Equal(sb.Open(), data) {
		t.Error("Open() should return equivalent data")
	}
	if &sb.Open()[0] == &data[0] {
		t.Error("Bytes should make a copy of data")
	}
	if sb.Len() != len(data) {
		t.Errorf("Len() = %d; want %d", sb.Len(), len(data))
	}
	if sb.IsClosed() {
		t.Error("IsClosed() should be false before Close()")
	}
}

func TestBytesClose(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	sb := NewBytes(data)
	internal := sb.Open()

	sb.Close()

	if !sb.IsClosed() {
		t.Error("IsClosed() should be true after Close()")
	}
	if sb.Open() != nil {
		t.Error("Open() should return nil after Close()")
	}
	if sb.Len() != 0 {
		t.Errorf("Len() = %d; want 0 after Close()", sb.Len())
	}
	if !bytes.Equal(internal, make([]byte, len(internal))) {
		t.Error("internal data should be zeroed after Close()")
	}
}

func TestBytesCloseIdempotent(t *testing.T) {
	sb := NewBytes([]byte{1, 2, 3, 4})
	sb.Close()
	sb.Close()
	sb.Close()

	if !sb.IsClosed() {
		t.Error("should remain closed after multiple Close() calls")
	}
}

func TestBytesMarshalJSONFails(t *testing.T) {
	sb := NewBytes([]byte("sensitive"))
	if _, err := sb.MarshalJSON(); err == nil {
		t.Error("MarshalJSON should always return an error")
	}
}

func TestBytesStringRedacted(t *testing.T) {
	sb := NewBytes([]byte("sensitive"))
	if bytes.Contains([]byte(sb.String()), []byte("sensitive")) {
		t.Error("String() should never reveal the underlying data")
	}
}

func TestString(t *testing.T) {
	ss := NewString("hunter2")
	if ss.Open() != "hunter2" {
		t.Error("Open() should return the original string")
	}

	ss.Close()
	if ss.Open() != "" {
		t.Error("Open() should return empty string after Close()")
	}
	if !ss.IsClosed() {
		t.Error("IsClosed() should be true after Close()")
	}

	if _, err := ss.MarshalJSON(); err == nil {
		t.Error("MarshalJSON should always return an error")
	}
}

func TestContextClose(t *testing.T) {
	c := &Context{
		DEK:          NewBytes([]byte{1, 2, 3, 4}),
		UnwrappedKey: NewBytes([]byte{5, 6, 7, 8}),
		Passphrase:   NewString("correct-horse-battery-staple"),
		Pin:          NewString("123456"),
	}

	c.Close()

	if !c.DEK.IsClosed() || !c.UnwrappedKey.IsClosed() || !c.Passphrase.IsClosed() || !c.Pin.IsClosed() {
		t.Error("Close() should close every held secret")
	}

	// Idempotent and safe on a zero value.
	c.Close()
	(&Context{}).Close()
}
