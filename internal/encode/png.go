package encode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"strings"

	"github.com/klauspost/compress/zlib"

	"github.com/mrsinham/randimage/internal/pixel"
)

const pngSignature = "\x89PNG\r\n\x1a\n"

// PNG color types (ISO/IEC 15948 table 11.1).
const (
	ctGrayscale = 0
	ctTruecolor = 2
	ctRGBA      = 6
)

const defaultIDATSize = 1 << 16

// Compression selects the zlib level used for IDAT data.
type Compression string

const (
	CompressionDefault Compression = "default"
	CompressionSpeed   Compression = "speed"
	CompressionBest    Compression = "best"
	CompressionNone    Compression = "none"
)

// ParseCompression parses a compression level name.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return CompressionDefault, nil
	case CompressionDefault, CompressionSpeed, CompressionBest, CompressionNone:
		return c, nil
	default:
		return "", fmt.Errorf("unknown compression %q (valid: default, speed, best, none)", s)
	}
}

func (c Compression) level() int {
	switch c {
	case CompressionSpeed:
		return zlib.BestSpeed
	case CompressionBest:
		return zlib.BestCompression
	case CompressionNone:
		return zlib.NoCompression
	default:
		return zlib.DefaultCompression
	}
}

type pngEncoder struct {
	opts Options
}

func newPNGEncoder(opts Options) (*pngEncoder, error) {
	if opts.Compression == "" {
		opts.Compression = CompressionDefault
	}
	if _, err := ParseCompression(string(opts.Compression)); err != nil {
		return nil, err
	}
	if opts.Filter == "" {
		opts.Filter = FilterAdaptive
	}
	if _, err := ParseFilter(string(opts.Filter)); err != nil {
		return nil, err
	}
	if opts.IDATSize <= 0 {
		opts.IDATSize = defaultIDATSize
	}
	for _, tf := range opts.Text {
		if err := checkTextField(tf); err != nil {
			return nil, err
		}
	}
	return &pngEncoder{opts: opts}, nil
}

// checkTextField enforces the tEXt rules: keyword of 1-79 printable Latin-1
// characters without leading, trailing or double spaces; text in Latin-1.
func checkTextField(tf TextField) error {
	k := tf.Keyword
	if len(k) == 0 || len(k) > 79 {
		return fmt.Errorf("%w: tEXt keyword %q must be 1-79 bytes", ErrEncoding, k)
	}
	if k[0] == ' ' || k[len(k)-1] == ' ' || strings.Contains(k, "  ") {
		return fmt.Errorf("%w: tEXt keyword %q has misplaced spaces", ErrEncoding, k)
	}
	for _, r := range k {
		if r < 32 || (r > 126 && r < 161) || r > 255 {
			return fmt.Errorf("%w: tEXt keyword %q has a non-printable character", ErrEncoding, k)
		}
	}
	for _, r := range tf.Text {
		if r == 0 || r > 255 {
			return fmt.Errorf("%w: tEXt value for %q is not Latin-1", ErrEncoding, k)
		}
	}
	return nil
}

func colorType(mode pixel.ColorMode) byte {
	switch mode {
	case pixel.Grayscale:
		return ctGrayscale
	case pixel.RGB:
		return ctTruecolor
	default:
		return ctRGBA
	}
}

// Encode writes signature, IHDR, tEXt, IDAT and IEND.
func (e *pngEncoder) Encode(w io.Writer, buf *pixel.Buffer) error {
	if err := checkBuffer(PNG, buf); err != nil {
		return err
	}

	idat, err := e.compress(buf)
	if err != nil {
		return err
	}

	cw := &chunkWriter{w: w}
	cw.writeRaw([]byte(pngSignature))

	var ihdr [13]byte
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(buf.Width))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(buf.Height))
	ihdr[8] = byte(buf.Depth)
	ihdr[9] = colorType(buf.Mode)
	ihdr[10] = 0 // deflate
	ihdr[11] = 0 // adaptive filtering
	ihdr[12] = 0 // no interlace
	cw.writeChunk("IHDR", ihdr[:])

	for _, tf := range e.opts.Text {
		cw.writeChunk("tEXt", latin1(tf.Keyword+"\x00"+tf.Text))
	}

	for len(idat) > 0 {
		n := min(len(idat), e.opts.IDATSize)
		cw.writeChunk("IDAT", idat[:n])
		idat = idat[n:]
	}
	cw.writeChunk("IEND", nil)
	return cw.err
}

// compress filters every scanline and deflates the result.
func (e *pngEncoder) compress(buf *pixel.Buffer) ([]byte, error) {
	var out bytes.Buffer
	zw, err := zlib.NewWriterLevel(&out, e.opts.Compression.level())
	if err != nil {
		return nil, fmt.Errorf("%w: zlib: %v", ErrEncoding, err)
	}

	stride := buf.Stride()
	bpp := buf.Mode.Channels() * buf.Depth.BytesPerSample()
	f := newRowFilter(e.opts.Filter, stride, bpp)

	prev := make([]byte, stride) // the row above the first one is all zeros
	for y := 0; y < buf.Height; y++ {
		cur := buf.Pix[y*stride : (y+1)*stride]
		if _, err := zw.Write(f.apply(cur, prev)); err != nil {
			return nil, fmt.Errorf("%w: deflate row %d: %v", ErrEncoding, y, err)
		}
		prev = cur
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: deflate: %v", ErrEncoding, err)
	}
	return out.Bytes(), nil
}

type chunkWriter struct {
	w   io.Writer
	err error
}

func (c *chunkWriter) writeRaw(p []byte) {
	if c.err != nil {
		return
	}
	_, c.err = c.w.Write(p)
}

// writeChunk emits length, type, data and the CRC of type+data.
func (c *chunkWriter) writeChunk(typ string, data []byte) {
	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(len(data)))
	copy(header[4:8], typ)

	crc := crc32.NewIEEE()
	_, _ = crc.Write(header[4:8])
	_, _ = crc.Write(data)
	var footer [4]byte
	binary.BigEndian.PutUint32(footer[:], crc.Sum32())

	c.writeRaw(header[:])
	c.writeRaw(data)
	c.writeRaw(footer[:])
}

// latin1 converts a validated string of code points <= 255 to bytes.
func latin1(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		out = append(out, byte(r))
	}
	return out
}
