package pointcloud

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"
)

// FileExt is the extension used for compressed cloud files.
const FileExt = ".pcz"

// fileMagic identifies a compressed cloud file, followed by a format version.
var fileMagic = [4]byte{'P', 'C', 'Z', '1'}

// Sentinel errors for codec failures.
var (
	// ErrBadMagic is returned when a file does not start with the cloud magic.
	ErrBadMagic = errors.New("pointcloud: not a compressed cloud file")

	// ErrCorrupt is returned when the payload does not match the header.
	ErrCorrupt = errors.New("pointcloud: corrupt cloud payload")
)

// pointBytes is the encoded size of one point: three float32 plus RGB.
const pointBytes = 3*4 + 3

// maxPoints bounds the decoded grid so a corrupt header cannot force a
// huge or overflowing allocation. 16M points covers any depth sensor.
const maxPoints = 1 << 24

// WriteCompressed serializes the cloud to w.
//
// Layout: magic, then a fixed little-endian header (width, height, stamp,
// device-id length), the device id, and a zstd-compressed point payload.
func WriteCompressed(w io.Writer, c *Cloud) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(fileMagic[:]); err != nil {
		return err
	}

	hdr := make([]byte, 4+4+8+2)
	binary.LittleEndian.PutUint32(hdr[0:], uint32(c.Width))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(c.Height))
	binary.LittleEndian.PutUint64(hdr[8:], c.Stamp)
	binary.LittleEndian.PutUint16(hdr[16:], uint16(len(c.Device)))
	if _, err := bw.Write(hdr); err != nil {
		return err
	}
	if _, err := bw.WriteString(c.Device); err != nil {
		return err
	}

	zw, err := zstd.NewWriter(bw)
	if err != nil {
		return fmt.Errorf("pointcloud: init compressor: %w", err)
	}

	buf := make([]byte, pointBytes)
	for _, p := range c.Points {
		binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(p.X))
		binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(p.Y))
		binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(p.Z))
		buf[12] = p.R
		buf[13] = p.G
		buf[14] = p.B
		if _, err := zw.Write(buf); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadCompressed deserializes a cloud written by WriteCompressed.
func ReadCompressed(r io.Reader) (*Cloud, error) {
	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, err
	}
	if magic != fileMagic {
		return nil, ErrBadMagic
	}

	hdr := make([]byte, 4+4+8+2)
	if _, err := io.ReadFull(br, hdr); err != nil {
		return nil, err
	}
	w32 := binary.LittleEndian.Uint32(hdr[0:])
	h32 := binary.LittleEndian.Uint32(hdr[4:])
	if w32 == 0 || h32 == 0 || uint64(w32)*uint64(h32) > maxPoints {
		return nil, fmt.Errorf("%w: implausible dimensions %dx%d", ErrCorrupt, w32, h32)
	}
	width := int(w32)
	height := int(h32)
	stamp := binary.LittleEndian.Uint64(hdr[8:])
	devLen := int(binary.LittleEndian.Uint16(hdr[16:]))

	dev := make([]byte, devLen)
	if _, err := io.ReadFull(br, dev); err != nil {
		return nil, err
	}

	zr, err := zstd.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("pointcloud: init decompressor: %w", err)
	}
	defer zr.Close()

	c := New(width, height)
	c.Stamp = stamp
	c.Device = string(dev)

	buf := make([]byte, pointBytes)
	for i := range c.Points {
		if _, err := io.ReadFull(zr, buf); err != nil {
			return nil, ErrCorrupt
		}
		c.Points[i] = Point{
			X: math.Float32frombits(binary.LittleEndian.Uint32(buf[0:])),
			Y: math.Float32frombits(binary.LittleEndian.Uint32(buf[4:])),
			Z: math.Float32frombits(binary.LittleEndian.Uint32(buf[8:])),
			R: buf[12],
			G: buf[13],
			B: buf[14],
		}
	}
	return c, nil
}

// WriteCompressedFile writes the cloud to path, creating or truncating it.
func WriteCompressedFile(path string, c *Cloud) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCompressed(f, c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadCompressedFile reads a cloud from path.
func ReadCompressedFile(path string) (*Cloud, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCompressed(f)
}
