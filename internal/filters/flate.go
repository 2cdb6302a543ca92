package filters

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Params represents decode parameters from PDF stream dictionaries.
// Common parameters include Predictor, Columns, Colors, and BitsPerComponent.
type Params map[string]interface{}

// Int extracts an integer parameter, returning def when the parameter
// is missing or not numeric.
func (p Params) Int(key string, def int) int {
	if p == nil {
		return def
	}
	switch v := p[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// FlateDecode decompresses Flate (zlib) data and undoes the predictor
// stage when /DecodeParms asks for one. Flate is the filter used by
// cross-reference streams and object streams, where PNG predictors
// (values 10-15) are the norm.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib reader: %w", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	decompressed := buf.Bytes()

	predictor := params.Int("Predictor", 1)
	if predictor == 1 {
		return decompressed, nil
	}
	out, err := undoPredictor(decompressed, predictor, params)
	if err != nil {
		return nil, fmt.Errorf("predictor failed: %w", err)
	}
	return out, nil
}

// undoPredictor reverses the prediction stage applied before compression.
// 2 is TIFF Predictor 2; 10-15 are the PNG per-row predictors.
func undoPredictor(data []byte, predictor int, params Params) ([]byte, error) {
	columns := params.Int("Columns", 1)
	colors := params.Int("Colors", 1)
	bpc := params.Int("BitsPerComponent", 8)
	if bpc != 8 {
		return nil, fmt.Errorf("predictors support 8 bits per component, got %d", bpc)
	}

	switch {
	case predictor == 2:
		return undoTIFFPredictor(data, columns, colors)
	case predictor >= 10 && predictor <= 15:
		return undoPNGPredictor(data, columns, colors)
	default:
		return nil, fmt.Errorf("unsupported predictor: %d", predictor)
	}
}

// undoTIFFPredictor reverses TIFF Predictor 2: each sample was stored
// as a delta from the sample to its left.
func undoTIFFPredictor(data []byte, columns, colors int) ([]byte, error) {
	rowSize := columns * colors
	if rowSize == 0 || len(data)%rowSize != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), rowSize)
	}

	result := make([]byte, len(data))
	copy(result, data)
	for row := 0; row < len(data)/rowSize; row++ {
		start := row * rowSize
		for col := colors; col < rowSize; col++ {
			result[start+col] += result[start+col-colors]
		}
	}
	return result, nil
}

// undoPNGPredictor reverses the PNG row filters. Each row carries one
// leading filter byte: 0=None, 1=Sub, 2=Up, 3=Average, 4=Paeth.
func undoPNGPredictor(data []byte, columns, colors int) ([]byte, error) {
	rowLen := columns * colors
	rowSize := rowLen + 1 // leading filter byte
	if rowLen == 0 || len(data)%rowSize != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), rowSize)
	}

	numRows := len(data) / rowSize
	result := make([]byte, numRows*rowLen)
	prev := make([]byte, rowLen) // zero row above the first

	for row := 0; row < numRows; row++ {
		filter := data[row*rowSize]
		src := data[row*rowSize+1 : (row+1)*rowSize]
		dst := result[row*rowLen : (row+1)*rowLen]

		for i := 0; i < rowLen; i++ {
			var left, up, upLeft byte
			if i >= colors {
				left = dst[i-colors]
				upLeft = prev[i-colors]
			}
			up = prev[i]

			switch filter {
			case 0:
				dst[i] = src[i]
			case 1:
				dst[i] = src[i] + left
			case 2:
				dst[i] = src[i] + up
			case 3:
				dst[i] = src[i] + byte((int(left)+int(up))/2)
			case 4:
				dst[i] = src[i] + paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("unknown PNG row filter %d in row %d", filter, row)
			}
		}
		prev = dst
	}
	return result, nil
}

// paeth selects the neighbor closest to the linear prediction a+b-c,
// per the PNG specification.
func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
