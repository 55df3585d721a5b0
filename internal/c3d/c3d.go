// Package c3d reads the binary C3D motion-capture file format (c3d.org):
// a 512-byte header block, a parameter section of group/parameter records,
// and interleaved 3D point + analog frames. Only the parts needed for marker
// kinematics are decoded: 3D point trajectories, labels, rate and units.
// Analog channels are skipped, not interpreted.
package c3d

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

const blockSize = 512

// Processor type codes stored in the parameter section.
const (
	procIntel = 84
	procDEC   = 85
	procMIPS  = 86
)

var (
	// ErrNotC3D marks files without the 0x50 magic byte.
	ErrNotC3D = errors.New("c3d: not a C3D file")
	// ErrUnsupportedProcessor marks DEC/MIPS encoded files.
	ErrUnsupportedProcessor = errors.New("c3d: unsupported processor type")
	// ErrNoPoints marks files without 3D point data.
	ErrNoPoints = errors.New("c3d: file contains no 3D points")
)

// Header is the decoded 512-byte C3D header block.
type Header struct {
	ParamBlock     int     // 1-based block index of the parameter section
	PointCount     int     // markers per frame
	AnalogPerFrame int     // total analog samples per 3D frame
	FirstFrame     int     // 1-based
	LastFrame      int     // 1-based, inclusive
	Scale          float64 // negative: point data stored as float32
	DataBlock      int     // 1-based block index of the first data block
	Rate           float64 // 3D frame rate in Hz
}

// FrameCount returns the number of 3D frames in the file.
func (h Header) FrameCount() int {
	return h.LastFrame - h.FirstFrame + 1
}

// File is a decoded C3D capture, with point trajectories in meters.
type File struct {
	Header Header
	Units  string
	Labels []string            // marker names in file order
	Points map[string][]r3.Vec // per-marker trajectory, NaN where invalid
	groups map[string]*Group
}

// Rate returns the 3D point rate, preferring POINT:RATE over the header.
func (f *File) Rate() float64 {
	if p := f.Param("POINT", "RATE"); p != nil {
		if v, err := p.Float(); err == nil && v > 0 {
			return v
		}
	}
	return f.Header.Rate
}

// Time returns the time vector for the capture: (firstFrame-1+i)/rate.
func (f *File) Time() []float64 {
	rate := f.Rate()
	n := f.Header.FrameCount()
	t := make([]float64, n)
	offset := float64(f.Header.FirstFrame - 1)
	for i := range t {
		t[i] = (offset + float64(i)) / rate
	}
	return t
}

// Group returns a parameter group by name, or nil.
func (f *File) Group(name string) *Group {
	return f.groups[strings.ToUpper(name)]
}

// Param returns a parameter by group and name, or nil.
func (f *File) Param(group, name string) *Param {
	g := f.Group(group)
	if g == nil {
		return nil
	}
	return g.Params[strings.ToUpper(name)]
}

// Open reads and decodes the C3D file at path.
func Open(path string) (*File, error) {
	fh, err := os.Open(path) // #nosec G304 -- dataset paths come from the scanner
	if err != nil {
		return nil, fmt.Errorf("c3d: open %s: %w", path, err)
	}
	defer func() { _ = fh.Close() }()

	f, err := Decode(fh)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return f, nil
}

// Decode decodes a C3D stream.
func Decode(r io.ReadSeeker) (*File, error) {
	var head [blockSize]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, fmt.Errorf("c3d: read header: %w", err)
	}
	if head[1] != 0x50 {
		return nil, ErrNotC3D
	}

	le := binary.LittleEndian
	hdr := Header{
		ParamBlock:     int(head[0]),
		PointCount:     int(le.Uint16(head[2:4])),
		AnalogPerFrame: int(le.Uint16(head[4:6])),
		FirstFrame:     int(le.Uint16(head[6:8])),
		LastFrame:      int(le.Uint16(head[8:10])),
		Scale:          float64(math.Float32frombits(le.Uint32(head[12:16]))),
		DataBlock:      int(le.Uint16(head[16:18])),
		Rate:           float64(math.Float32frombits(le.Uint32(head[20:24]))),
	}

	groups, err := readParameters(r, hdr.ParamBlock)
	if err != nil {
		return nil, err
	}

	f := &File{Header: hdr, groups: groups}

	if p := f.Param("POINT", "USED"); p != nil {
		if used, err := p.Int(); err == nil && used > 0 {
			f.Header.PointCount = used
		}
	}
	if f.Header.PointCount <= 0 {
		return nil, ErrNoPoints
	}

	f.Units = "mm"
	if p := f.Param("POINT", "UNITS"); p != nil {
		if s := p.Strings(); len(s) > 0 && s[0] != "" {
			f.Units = s[0]
		}
	}

	f.Labels = pointLabels(f, f.Header.PointCount)

	if err := readPoints(r, f); err != nil {
		return nil, err
	}
	return f, nil
}

// pointLabels collects POINT:LABELS plus LABELS2.. continuation parameters,
// falling back to positional names when the file carries fewer labels than
// markers.
func pointLabels(f *File, n int) []string {
	labels := make([]string, 0, n)
	for _, name := range []string{"LABELS", "LABELS2", "LABELS3", "LABELS4"} {
		p := f.Param("POINT", name)
		if p == nil {
			break
		}
		labels = append(labels, p.Strings()...)
		if len(labels) >= n {
			break
		}
	}
	if len(labels) > n {
		labels = labels[:n]
	}
	for len(labels) < n {
		labels = append(labels, fmt.Sprintf("M%03d", len(labels)+1))
	}
	// Duplicate labels would silently collapse trajectories in the map.
	seen := make(map[string]int, n)
	for i, l := range labels {
		if l == "" {
			l = fmt.Sprintf("M%03d", i+1)
		}
		if c, dup := seen[l]; dup {
			seen[l] = c + 1
			l = fmt.Sprintf("%s_%d", l, c+1)
		} else {
			seen[l] = 1
		}
		labels[i] = l
	}
	return labels
}

// readPoints decodes the 3D frames into per-marker trajectories in meters.
func readPoints(r io.ReadSeeker, f *File) error {
	hdr := f.Header
	if _, err := r.Seek(int64(hdr.DataBlock-1)*blockSize, io.SeekStart); err != nil {
		return fmt.Errorf("c3d: seek data section: %w", err)
	}

	frames := hdr.FrameCount()
	if frames <= 0 {
		return fmt.Errorf("c3d: invalid frame range %d..%d", hdr.FirstFrame, hdr.LastFrame)
	}

	floatData := hdr.Scale < 0
	scale := math.Abs(hdr.Scale)

	var valueSize int
	if floatData {
		valueSize = 4
	} else {
		valueSize = 2
	}
	frameSize := hdr.PointCount*4*valueSize + hdr.AnalogPerFrame*valueSize

	toMeters := 1.0
	if strings.EqualFold(strings.TrimSpace(f.Units), "mm") {
		toMeters = 0.001
	}

	f.Points = make(map[string][]r3.Vec, hdr.PointCount)
	series := make([][]r3.Vec, hdr.PointCount)
	for i := range series {
		series[i] = make([]r3.Vec, frames)
	}

	buf := make([]byte, frameSize)
	le := binary.LittleEndian
	nan := math.NaN()

	for fr := 0; fr < frames; fr++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("c3d: read frame %d/%d: %w", fr+1, frames, err)
		}
		for m := 0; m < hdr.PointCount; m++ {
			off := m * 4 * valueSize
			var x, y, z, residual float64
			if floatData {
				x = float64(math.Float32frombits(le.Uint32(buf[off:])))
				y = float64(math.Float32frombits(le.Uint32(buf[off+4:])))
				z = float64(math.Float32frombits(le.Uint32(buf[off+8:])))
				residual = float64(math.Float32frombits(le.Uint32(buf[off+12:])))
			} else {
				x = float64(int16(le.Uint16(buf[off:]))) * scale
				y = float64(int16(le.Uint16(buf[off+2:]))) * scale
				z = float64(int16(le.Uint16(buf[off+4:]))) * scale
				residual = float64(int16(le.Uint16(buf[off+6:])))
			}
			if residual < 0 {
				series[m][fr] = r3.Vec{X: nan, Y: nan, Z: nan}
				continue
			}
			series[m][fr] = r3.Vec{X: x * toMeters, Y: y * toMeters, Z: z * toMeters}
		}
	}

	for i, label := range f.Labels {
		f.Points[label] = series[i]
	}
	return nil
}
