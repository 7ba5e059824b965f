package net

import (
	"encoding/binary"
	"fmt"
)

// reader walks a byte slice left to right, accumulating the first
// error hit so call sites can defer error checking to the end of a
// parse function instead of threading it through every field.
type reader struct {
	buf []byte
	pos int
	err error
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.buf) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrMessageTooShort, n, r.pos, len(r.buf)-r.pos)
		return false
	}
	return true
}

// byte reads a single byte, returning 0 if the reader already failed
// or ran out of room. Callers that must distinguish the two should
// use byteChecked instead.
func (r *reader) byte() byte {
	b, _ := r.byteChecked()
	return b
}

func (r *reader) byteChecked() (byte, error) {
	if !r.need(1) {
		return 0, r.err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) int64() (int64, error) {
	if !r.need(8) {
		return 0, r.err
	}
	v := int64(binary.BigEndian.Uint64(r.buf[r.pos : r.pos+8]))
	r.pos += 8
	return v, nil
}

func (r *reader) lenPrefixedString8() (string, error) {
	n, err := r.byteChecked()
	if err != nil {
		return "", err
	}
	return r.string(int(n))
}

func (r *reader) lenPrefixedString16() (string, error) {
	if !r.need(2) {
		return "", r.err
	}
	n := binary.BigEndian.Uint16(r.buf[r.pos : r.pos+2])
	r.pos += 2
	return r.string(int(n))
}

func (r *reader) lenPrefixedString32() (string, error) {
	if !r.need(4) {
		return "", r.err
	}
	n := binary.BigEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return r.string(int(n))
}

func (r *reader) string(n int) (string, error) {
	if !r.need(n) {
		return "", r.err
	}
	s := string(r.buf[r.pos : r.pos+n])
	r.pos += n
	return s, nil
}

// writer appends length-prefixed and fixed-width fields in the same
// framing reader expects, growing a single backing buffer.
type writer struct {
	buf []byte
}

func newWriter() *writer {
	return &writer{buf: make([]byte, 0, 64)}
}

func (w *writer) byte(b byte) {
	w.buf = append(w.buf, b)
}

func (w *writer) int64(v int64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	w.buf = append(w.buf, tmp[:]...)
}

func (w *writer) lenPrefixedString8(s string) {
	w.buf = append(w.buf, byte(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) lenPrefixedString16(s string) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], uint16(len(s)))
	w.buf = append(w.buf, tmp[:]...)
	w.buf = append(w.buf, s...)
}

func (w *writer) lenPrefixedString32(s string) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(len(s)))
	w.buf = append(w.buf, tmp[:]...)
	w.buf = append(w.buf, s...)
}

func (w *writer) bytes() []byte { return w.buf }
