package filter

import (
	"io"

	"github.com/mechiko/pdfkit/errs"
	"github.com/mechiko/pdfkit/types"
)

// Predictor codes as defined in Table 8 of 7.4.4.4.
const (
	predictorNone    = 1
	predictorTIFF    = 2
	predictorPNGNone = 10
	predictorPNGSub  = 11
	predictorPNGUp   = 12
	predictorPNGAvg  = 13
	predictorPNGPaeth = 14
	predictorOptimum = 15 // encoder-chosen "best" PNG filter per row; not itself a decodable predictor.
)

const (
	pngTagNone = 0
	pngTagSub  = 1
	pngTagUp   = 2
	pngTagAvg  = 3
	pngTagPaeth = 4
)

// predictorParams is the decoded /DecodeParms relevant to a predictor.
type predictorParams struct {
	predictor        int
	colors           int
	bitsPerComponent int
	columns          int
}

func readPredictorParams(parms *types.Dict) predictorParams {
	return predictorParams{
		predictor:        intParm(parms, "Predictor", predictorNone),
		colors:           intParm(parms, "Colors", 1),
		bitsPerComponent: intParm(parms, "BitsPerComponent", 8),
		columns:          intParm(parms, "Columns", 1),
	}
}

// newPredictorUnwriter wraps dst so that writes of raw (still-predicted)
// row bytes are reconstructed to their true pixel values before being
// forwarded. Returns dst unchanged if no predictor is in effect.
//
// Supported: PNG predictors 10-14 (each row individually tagged) and TIFF
// predictor 2 at 8 bits per component. Predictor 15 ("Optimum") names an
// encoder strategy, not a decodable tag, and is rejected outright, as is
// any other combination - in particular a non-8-bit TIFF predictor, which
// the classic row-length computation used to silently under-size a
// buffer for.
func newPredictorUnwriter(dst io.Writer, parms *types.Dict) (io.Writer, error) {

	pp := readPredictorParams(parms)

	if pp.predictor == predictorNone {
		return dst, nil
	}

	if pp.bitsPerComponent != 8 {
		return nil, errs.New(errs.InvalidPredictor,
			"predictor %d requires 8 bits per component, got %d", pp.predictor, pp.bitsPerComponent)
	}

	rowBytes := pp.columns * pp.colors

	switch pp.predictor {

	case predictorTIFF:
		return &tiffUnpredictWriter{dst: dst, colors: pp.colors, rowBytes: rowBytes}, nil

	case predictorPNGNone, predictorPNGSub, predictorPNGUp, predictorPNGAvg, predictorPNGPaeth:
		return &pngUnpredictWriter{dst: dst, bpp: pp.colors, rowBytes: rowBytes}, nil

	default:
		return nil, errs.New(errs.InvalidPredictor, "unsupported predictor %d", pp.predictor)
	}
}

// pngUnpredictWriter reconstructs PNG-predicted rows (10.6.3 / RFC 2083
// §6), each prefixed with a 1-byte filter-type tag.
type pngUnpredictWriter struct {
	dst      io.Writer
	bpp      int // bytes per complete pixel, at 8 bits/component == colors.
	rowBytes int
	prev     []byte
	buf      []byte
}

func (w *pngUnpredictWriter) Write(p []byte) (int, error) {
	n := len(p)
	w.buf = append(w.buf, p...)

	for len(w.buf) >= w.rowBytes+1 {
		tag := w.buf[0]
		row := append([]byte(nil), w.buf[1:1+w.rowBytes]...)
		w.buf = w.buf[1+w.rowBytes:]

		if err := pngUnfilterRow(tag, row, w.prev, w.bpp); err != nil {
			return n, err
		}

		if _, err := w.dst.Write(row); err != nil {
			return n, err
		}
		w.prev = row
	}

	return n, nil
}

func pngUnfilterRow(tag byte, row, prev []byte, bpp int) error {
	switch tag {
	case pngTagNone:
		// row already holds true values.
	case pngTagSub:
		for i := range row {
			var left byte
			if i >= bpp {
				left = row[i-bpp]
			}
			row[i] += left
		}
	case pngTagUp:
		for i := range row {
			var up byte
			if prev != nil {
				up = prev[i]
			}
			row[i] += up
		}
	case pngTagAvg:
		for i := range row {
			var left, up int
			if i >= bpp {
				left = int(row[i-bpp])
			}
			if prev != nil {
				up = int(prev[i])
			}
			row[i] += byte((left + up) / 2)
		}
	case pngTagPaeth:
		for i := range row {
			var left, up, upLeft int
			if i >= bpp {
				left = int(row[i-bpp])
			}
			if prev != nil {
				up = int(prev[i])
			}
			if i >= bpp && prev != nil {
				upLeft = int(prev[i-bpp])
			}
			row[i] += byte(paethPredictor(left, up, upLeft))
		}
	default:
		return errs.New(errs.InvalidPredictor, "unrecognized PNG row filter tag %d", tag)
	}
	return nil
}

func paethPredictor(a, b, c int) int {
	p := a + b - c
	pa, pb, pc := abs(p-a), abs(p-b), abs(p-c)
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// tiffUnpredictWriter reconstructs TIFF-predictor-2 rows (each component
// is delta-coded against the same component of the pixel bpp bytes
// earlier in the row; 7.4.4.4 restricts pdfkit to 8-bit components).
type tiffUnpredictWriter struct {
	dst      io.Writer
	colors   int
	rowBytes int
	buf      []byte
}

func (w *tiffUnpredictWriter) Write(p []byte) (int, error) {
	n := len(p)
	w.buf = append(w.buf, p...)

	for len(w.buf) >= w.rowBytes {
		row := append([]byte(nil), w.buf[:w.rowBytes]...)
		w.buf = w.buf[w.rowBytes:]

		for i := w.colors; i < len(row); i++ {
			row[i] += row[i-w.colors]
		}

		if _, err := w.dst.Write(row); err != nil {
			return n, err
		}
	}

	return n, nil
}

// flushPredictor reports an error if w has leftover buffered bytes that
// never formed a complete row - a truncated or malformed predicted stream.
func flushPredictor(w io.Writer) error {
	switch pw := w.(type) {
	case *pngUnpredictWriter:
		if len(pw.buf) != 0 {
			return errs.New(errs.InvalidPredictor, "truncated predicted row: %d leftover bytes", len(pw.buf))
		}
	case *tiffUnpredictWriter:
		if len(pw.buf) != 0 {
			return errs.New(errs.InvalidPredictor, "truncated predicted row: %d leftover bytes", len(pw.buf))
		}
	}
	return nil
}
