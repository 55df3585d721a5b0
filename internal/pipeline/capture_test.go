package pipeline

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// testPose is a static standing pose in millimeters covering every marker
// the standard model reads. Constant positions pass unchanged through the
// zero-phase filter, so the exported angles are constant too.
var testPose = []struct {
	label   string
	x, y, z float64
}{
	{"RSHO", 200, 1400, 0}, {"LSHO", -200, 1400, 0},
	{"T10", 0, 1250, -100}, {"STRN", 0, 1250, 100},
	{"RELB", 250, 1100, 0}, {"RMELB", 180, 1100, 20},
	{"LELB", -250, 1100, 0}, {"LMELB", -180, 1100, 20},
	{"RWRA", 230, 850, 60}, {"RWRB", 280, 850, 20},
	{"LWRA", -230, 850, 60}, {"LWRB", -280, 850, 20},
	{"RFIN", 260, 750, 40}, {"LFIN", -260, 750, 40},
	{"RASI", 120, 1000, 80}, {"LASI", -120, 1000, 80},
	{"RPSI", 60, 1020, -120}, {"LPSI", -60, 1020, -120},
	{"RTHI", 160, 800, 30}, {"LTHI", -160, 800, 30},
	{"RKNE", 110, 500, 10}, {"RMKNE", 40, 500, 10},
	{"LKNE", -110, 500, 10}, {"LMKNE", -40, 500, 10},
	{"RTIB", 100, 300, 20}, {"LTIB", -100, 300, 20},
	{"RANK", 90, 100, -10}, {"RMANK", 30, 100, -10},
	{"LANK", -90, 100, -10}, {"LMANK", -30, 100, -10},
	{"RHEE", 70, 40, -80}, {"LHEE", -70, 40, -80},
	{"RTOE", 70, 30, 150}, {"LTOE", -70, 30, 150},
}

// writeCapture assembles a float-storage C3D file with the static test pose
// repeated for the given number of frames.
func writeCapture(t *testing.T, path string, frames int, rate float64) {
	t.Helper()
	le := binary.LittleEndian
	const blockSize = 512

	// Parameter section: POINT group with USED, RATE, UNITS and LABELS.
	var params bytes.Buffer
	params.Write([]byte{0x00, 0x00, 1, 84}) // Intel processor

	writeGroup := func(id int8, name string) {
		params.WriteByte(byte(len(name)))
		params.WriteByte(byte(id))
		params.WriteString(name)
		var off [2]byte
		le.PutUint16(off[:], uint16(3)) // next record, empty description
		params.Write(off[:])
		params.WriteByte(0)
	}
	writeParam := func(groupID int8, name string, typ int8, dims []int, data []byte) {
		params.WriteByte(byte(len(name)))
		params.WriteByte(byte(groupID))
		params.WriteString(name)
		var off [2]byte
		le.PutUint16(off[:], uint16(2+2+len(dims)+len(data)+1))
		params.Write(off[:])
		params.WriteByte(byte(typ))
		params.WriteByte(byte(len(dims)))
		for _, d := range dims {
			params.WriteByte(byte(d))
		}
		params.Write(data)
		params.WriteByte(0)
	}

	writeGroup(-1, "POINT")

	used := make([]byte, 2)
	le.PutUint16(used, uint16(len(testPose)))
	writeParam(1, "USED", 2, []int{1}, used)

	rateBits := make([]byte, 4)
	le.PutUint32(rateBits, math.Float32bits(float32(rate)))
	writeParam(1, "RATE", 4, []int{1}, rateBits)

	writeParam(1, "UNITS", -1, []int{2}, []byte("mm"))

	width := 0
	for _, m := range testPose {
		if len(m.label) > width {
			width = len(m.label)
		}
	}
	labelData := make([]byte, 0, width*len(testPose))
	for _, m := range testPose {
		padded := m.label
		for len(padded) < width {
			padded += " "
		}
		labelData = append(labelData, padded...)
	}
	writeParam(1, "LABELS", -1, []int{width, len(testPose)}, labelData)
	params.Write([]byte{0, 0})

	paramBlocks := (params.Len() + blockSize - 1) / blockSize
	dataBlock := 2 + paramBlocks

	head := make([]byte, blockSize)
	head[0] = 2 // parameter section at block 2
	head[1] = 0x50
	le.PutUint16(head[2:], uint16(len(testPose)))
	le.PutUint16(head[6:], 1) // first frame
	le.PutUint16(head[8:], uint16(frames))
	le.PutUint32(head[12:], math.Float32bits(float32(-1))) // float storage
	le.PutUint16(head[16:], uint16(dataBlock))
	le.PutUint32(head[20:], math.Float32bits(float32(rate)))

	var data bytes.Buffer
	for f := 0; f < frames; f++ {
		for _, m := range testPose {
			for _, v := range []float64{m.x, m.y, m.z, 1} {
				var b [4]byte
				le.PutUint32(b[:], math.Float32bits(float32(v)))
				data.Write(b[:])
			}
		}
	}

	var out bytes.Buffer
	out.Write(head)
	out.Write(params.Bytes())
	for out.Len() < (dataBlock-1)*blockSize {
		out.WriteByte(0)
	}
	out.Write(data.Bytes())
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0o644))
}
