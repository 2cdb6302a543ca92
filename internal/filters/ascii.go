package filters

import (
	"bytes"
	"fmt"
)

// ASCIIHexDecode decodes ASCII hexadecimal encoded data. Each pair of
// hex digits represents one byte; whitespace is ignored and '>' marks
// end of data. An odd trailing digit is padded with zero.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	var result bytes.Buffer
	var hi byte
	haveHi := false

	for _, b := range data {
		if isSpace(b) {
			continue
		}
		if b == '>' {
			break
		}
		v, err := hexDigit(b)
		if err != nil {
			return nil, err
		}
		if haveHi {
			result.WriteByte(hi<<4 | v)
			haveHi = false
		} else {
			hi = v
			haveHi = true
		}
	}
	if haveHi {
		result.WriteByte(hi << 4)
	}
	return result.Bytes(), nil
}

// ASCII85Decode decodes ASCII base-85 encoded data. Groups of five
// characters encode four bytes; 'z' is shorthand for four zero bytes,
// and "~>" marks end of data.
func ASCII85Decode(data []byte) ([]byte, error) {
	var result bytes.Buffer
	var group [5]byte
	n := 0

	flush := func(count int) error {
		if count < 2 {
			return fmt.Errorf("ascii85: truncated final group")
		}
		// Pad the group with 'u' (the highest digit)
		for i := count; i < 5; i++ {
			group[i] = 'u'
		}
		var val uint32
		for _, c := range group {
			if c < '!' || c > 'u' {
				return fmt.Errorf("ascii85: invalid character %q", c)
			}
			val = val*85 + uint32(c-'!')
		}
		out := []byte{byte(val >> 24), byte(val >> 16), byte(val >> 8), byte(val)}
		result.Write(out[:count-1])
		return nil
	}

	for i := 0; i < len(data); i++ {
		b := data[i]
		if isSpace(b) {
			continue
		}
		if b == '~' {
			break // "~>" EOD marker
		}
		if b == 'z' && n == 0 {
			result.Write([]byte{0, 0, 0, 0})
			continue
		}
		group[n] = b
		n++
		if n == 5 {
			if err := flush(5); err != nil {
				return nil, err
			}
			n = 0
		}
	}
	if n > 0 {
		if err := flush(n); err != nil {
			return nil, err
		}
	}
	return result.Bytes(), nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func hexDigit(b byte) (byte, error) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', nil
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, nil
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, nil
	}
	return 0, fmt.Errorf("invalid hex digit %q", b)
}
