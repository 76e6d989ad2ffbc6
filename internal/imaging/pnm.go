package imaging

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strconv"
)

// ErrInvalidHeader indicates a PPM or PFM header that cannot be parsed.
var ErrInvalidHeader = errors.New("invalid portable image header")

func init() {
	image.RegisterFormat("ppm", "P6", DecodePPM, decodePPMConfig)
	image.RegisterFormat("pfm", "PF", DecodePFM, decodePFMConfig)
	image.RegisterFormat("pfm", "Pf", DecodePFM, decodePFMConfig)
}

// pnmHeader is the parsed text header shared by PPM and PFM.
type pnmHeader struct {
	magic  string
	width  int
	height int
	// maxval for PPM, scale (sign = endianness) for PFM
	scale float64
}

// readToken returns the next whitespace-delimited header token, skipping
// '#' comments.
func readToken(r *bufio.Reader) (string, error) {
	var tok []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && len(tok) > 0 {
				return string(tok), nil
			}
			return "", err
		}
		switch {
		case b == '#' && len(tok) == 0:
			if _, err := r.ReadString('\n'); err != nil {
				return "", err
			}
		case b == ' ' || b == '\t' || b == '\n' || b == '\r':
			if len(tok) > 0 {
				return string(tok), nil
			}
		default:
			tok = append(tok, b)
		}
	}
}

func readHeader(r *bufio.Reader) (*pnmHeader, error) {
	var fields [4]string
	for i := range fields {
		tok, err := readToken(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
		}
		fields[i] = tok
	}

	h := &pnmHeader{magic: fields[0]}
	var err error
	if h.width, err = strconv.Atoi(fields[1]); err != nil || h.width <= 0 {
		return nil, fmt.Errorf("%w: bad width %q", ErrInvalidHeader, fields[1])
	}
	if h.height, err = strconv.Atoi(fields[2]); err != nil || h.height <= 0 {
		return nil, fmt.Errorf("%w: bad height %q", ErrInvalidHeader, fields[2])
	}
	if h.scale, err = strconv.ParseFloat(fields[3], 64); err != nil || h.scale == 0 {
		return nil, fmt.Errorf("%w: bad scale %q", ErrInvalidHeader, fields[3])
	}
	if err := CheckSize(h.width, h.height); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	return h, nil
}

func decodePPMConfig(r io.Reader) (image.Config, error) {
	h, err := readHeader(bufio.NewReader(r))
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.NRGBAModel, Width: h.width, Height: h.height}, nil
}

// DecodePPM reads a binary (P6) PPM image with a maximum value of 255.
func DecodePPM(r io.Reader) (image.Image, error) {
	br := bufio.NewReader(r)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	if h.magic != "P6" {
		return nil, fmt.Errorf("%w: image is not a binary PPM file", ErrInvalidHeader)
	}
	if h.scale != 255 {
		return nil, fmt.Errorf("%w: max color value must be 255", ErrInvalidHeader)
	}

	img := image.NewNRGBA(image.Rect(0, 0, h.width, h.height))
	row := make([]byte, h.width*3)
	for y := 0; y < h.height; y++ {
		if _, err := io.ReadFull(br, row); err != nil {
			return nil, fmt.Errorf("failed to read pixel data: %w", err)
		}
		line := img.Pix[y*img.Stride:]
		for x := 0; x < h.width; x++ {
			line[4*x+0] = row[3*x+0]
			line[4*x+1] = row[3*x+1]
			line[4*x+2] = row[3*x+2]
			line[4*x+3] = 0xff
		}
	}
	return img, nil
}

// EncodePPM writes img as a binary PPM. Alpha is dropped.
func EncodePPM(w io.Writer, img *image.NRGBA) error {
	bw := bufio.NewWriter(w)
	width, height := img.Rect.Dx(), img.Rect.Dy()
	if _, err := fmt.Fprintf(bw, "P6\n%d %d\n255\n", width, height); err != nil {
		return err
	}
	row := make([]byte, width*3)
	for y := 0; y < height; y++ {
		line := img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y):]
		for x := 0; x < width; x++ {
			row[3*x+0] = line[4*x+0]
			row[3*x+1] = line[4*x+1]
			row[3*x+2] = line[4*x+2]
		}
		if _, err := bw.Write(row); err != nil {
			return fmt.Errorf("failed to write pixel data: %w", err)
		}
	}
	return bw.Flush()
}

func decodePFMConfig(r io.Reader) (image.Config, error) {
	h, err := readHeader(bufio.NewReader(r))
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.NRGBAModel, Width: h.width, Height: h.height}, nil
}

// DecodePFM reads a portable float map. Values are clamped to [0,1] and
// quantized to 8 bits. Rows are stored bottom to top.
func DecodePFM(r io.Reader) (image.Image, error) {
	br := bufio.NewReader(r)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	var channels int
	switch h.magic {
	case "PF":
		channels = 3
	case "Pf":
		channels = 1
	default:
		return nil, fmt.Errorf("%w: image is not a PFM file", ErrInvalidHeader)
	}

	var order binary.ByteOrder = binary.BigEndian
	if h.scale < 0 {
		order = binary.LittleEndian
	}

	img := image.NewNRGBA(image.Rect(0, 0, h.width, h.height))
	row := make([]byte, h.width*channels*4)
	for y := h.height - 1; y >= 0; y-- {
		if _, err := io.ReadFull(br, row); err != nil {
			return nil, fmt.Errorf("failed to read pixel data: %w", err)
		}
		line := img.Pix[y*img.Stride:]
		for x := 0; x < h.width; x++ {
			for c := 0; c < 3; c++ {
				src := c
				if channels == 1 {
					src = 0
				}
				off := 4 * (x*channels + src)
				v := math.Float32frombits(order.Uint32(row[off : off+4]))
				line[4*x+c] = quantize(float64(v))
			}
			line[4*x+3] = 0xff
		}
	}
	return img, nil
}

// EncodePFM writes img as a little-endian color PFM, mapping 8-bit values
// through gain.
func EncodePFM(w io.Writer, img *image.NRGBA, gain float64) error {
	bw := bufio.NewWriter(w)
	width, height := img.Rect.Dx(), img.Rect.Dy()
	if _, err := fmt.Fprintf(bw, "PF\n%d %d\n-1.0\n", width, height); err != nil {
		return err
	}
	row := make([]byte, width*3*4)
	for y := height - 1; y >= 0; y-- {
		line := img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y):]
		for x := 0; x < width; x++ {
			for c := 0; c < 3; c++ {
				v := float32(float64(line[4*x+c]) / 255 * gain)
				binary.LittleEndian.PutUint32(row[4*(3*x+c):], math.Float32bits(v))
			}
		}
		if _, err := bw.Write(row); err != nil {
			return fmt.Errorf("failed to write pixel data: %w", err)
		}
	}
	return bw.Flush()
}

// quantize maps v in [0,1] to a byte, rounding to nearest.
func quantize(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 1:
		return 0xff
	}
	return uint8(v*255 + 0.5)
}
