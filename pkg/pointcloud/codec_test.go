package pointcloud

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func sampleCloud() *Cloud {
	c := New(4, 3)
	c.Stamp = 1234567890
	c.Device = "SIM-test"
	for y := 0; y < c.Height; y++ {
		for x := 0; x < c.Width; x++ {
			c.Set(x, y, Point{
				X: float32(x) * 0.1,
				Y: float32(y) * 0.1,
				Z: 1.0 + float32(x+y)*0.05,
				R: uint8(x * 50),
				G: uint8(y * 50),
				B: 200,
			})
		}
	}
	c.Set(2, 1, InvalidPoint())
	return c
}

func TestCodec_RoundTrip(t *testing.T) {
	in := sampleCloud()

	var buf bytes.Buffer
	if err := WriteCompressed(&buf, in); err != nil {
		t.Fatalf("WriteCompressed: %v", err)
	}

	out, err := ReadCompressed(&buf)
	if err != nil {
		t.Fatalf("ReadCompressed: %v", err)
	}

	if diff := cmp.Diff(in, out, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("round trip mismatch (-in +out):\n%s", diff)
	}
}

func TestCodec_FileRoundTrip(t *testing.T) {
	in := sampleCloud()
	path := filepath.Join(t.TempDir(), "frame"+FileExt)

	if err := WriteCompressedFile(path, in); err != nil {
		t.Fatalf("WriteCompressedFile: %v", err)
	}

	out, err := ReadCompressedFile(path)
	if err != nil {
		t.Fatalf("ReadCompressedFile: %v", err)
	}
	if diff := cmp.Diff(in, out, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("file round trip mismatch (-in +out):\n%s", diff)
	}
}

func TestCodec_RejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-cloud")
	if err := os.WriteFile(path, []byte("definitely not a cloud"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := ReadCompressedFile(path)
	if err != ErrBadMagic {
		t.Errorf("error = %v, want ErrBadMagic", err)
	}
}

func TestCodec_RejectsImplausibleDimensions(t *testing.T) {
	craft := func(width, height uint32) []byte {
		buf := make([]byte, 4+18)
		copy(buf, "PCZ1")
		binary.LittleEndian.PutUint32(buf[4:], width)
		binary.LittleEndian.PutUint32(buf[8:], height)
		return buf
	}

	cases := map[string][2]uint32{
		"zero width":        {0, 48},
		"zero height":       {64, 0},
		"product overflows": {0xFFFFFFFF, 0xFFFFFFFF},
		"absurdly large":    {1 << 20, 1 << 20},
	}
	for name, dims := range cases {
		_, err := ReadCompressed(bytes.NewReader(craft(dims[0], dims[1])))
		if !errors.Is(err, ErrCorrupt) {
			t.Errorf("%s: error = %v, want ErrCorrupt", name, err)
		}
	}
}

func TestCodec_TruncatedPayload(t *testing.T) {
	in := sampleCloud()

	var buf bytes.Buffer
	if err := WriteCompressed(&buf, in); err != nil {
		t.Fatal(err)
	}

	truncated := buf.Bytes()[:buf.Len()-8]
	if _, err := ReadCompressed(bytes.NewReader(truncated)); err == nil {
		t.Error("expected an error for a truncated payload")
	}
}

func TestCloud_ValidAndInvalidPoints(t *testing.T) {
	p := Point{X: 1, Y: 2, Z: 3}
	if !p.Valid() {
		t.Error("finite point should be valid")
	}
	if InvalidPoint().Valid() {
		t.Error("invalid marker should not be valid")
	}
	if !math.IsNaN(float64(InvalidPoint().Z)) {
		t.Error("invalid marker should carry NaN depth")
	}
}

func TestCloud_CloneIsDeep(t *testing.T) {
	c := sampleCloud()
	clone := c.Clone()

	clone.Set(0, 0, Point{Z: 99})
	if c.At(0, 0).Z == 99 {
		t.Error("mutating the clone changed the original")
	}
}
