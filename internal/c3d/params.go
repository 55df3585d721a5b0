package c3d

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
)

// Parameter data type codes (size in bytes; -1 is char).
const (
	typeChar  = -1
	typeByte  = 1
	typeInt16 = 2
	typeFloat = 4
)

// Param is one decoded parameter: typed data of up to 7 dimensions.
type Param struct {
	Name        string
	Description string
	Type        int8
	Dims        []int
	data        []byte
}

// Group is a named set of parameters.
type Group struct {
	Name        string
	Description string
	Params      map[string]*Param
}

func (p *Param) count() int {
	n := 1
	for _, d := range p.Dims {
		n *= d
	}
	return n
}

// Float returns the parameter as a single float64. Integer and byte
// parameters are widened.
func (p *Param) Float() (float64, error) {
	vals, err := p.Floats()
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("c3d: parameter %s is empty", p.Name)
	}
	return vals[0], nil
}

// Floats returns the parameter data as float64 values.
func (p *Param) Floats() ([]float64, error) {
	le := binary.LittleEndian
	n := p.count()
	out := make([]float64, 0, n)
	switch p.Type {
	case typeFloat:
		for i := 0; i+4 <= len(p.data); i += 4 {
			out = append(out, float64(math.Float32frombits(le.Uint32(p.data[i:]))))
		}
	case typeInt16:
		for i := 0; i+2 <= len(p.data); i += 2 {
			out = append(out, float64(int16(le.Uint16(p.data[i:]))))
		}
	case typeByte:
		for _, b := range p.data {
			out = append(out, float64(int8(b)))
		}
	default:
		return nil, fmt.Errorf("c3d: parameter %s is not numeric (type %d)", p.Name, p.Type)
	}
	return out, nil
}

// Int returns the parameter as a single int.
func (p *Param) Int() (int, error) {
	v, err := p.Float()
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// Strings decodes a char parameter as a list of space-trimmed strings. A
// one-dimensional char parameter yields a single string; two dimensions are
// interpreted as [width, count].
func (p *Param) Strings() []string {
	if p.Type != typeChar {
		return nil
	}
	if len(p.Dims) < 2 {
		return []string{strings.TrimSpace(string(p.data))}
	}
	width, count := p.Dims[0], p.Dims[1]
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		start := i * width
		end := start + width
		if start >= len(p.data) {
			break
		}
		if end > len(p.data) {
			end = len(p.data)
		}
		out = append(out, strings.TrimSpace(string(p.data[start:end])))
	}
	return out
}

// readParameters decodes the parameter section starting at the given 1-based
// block index.
func readParameters(r io.ReadSeeker, paramBlock int) (map[string]*Group, error) {
	if _, err := r.Seek(int64(paramBlock-1)*blockSize, io.SeekStart); err != nil {
		return nil, fmt.Errorf("c3d: seek parameter section: %w", err)
	}

	var pre [4]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		return nil, fmt.Errorf("c3d: read parameter prelude: %w", err)
	}
	blocks := int(pre[2])
	if blocks <= 0 {
		blocks = 1
	}
	if int(pre[3]) != procIntel {
		return nil, fmt.Errorf("%w: code %d", ErrUnsupportedProcessor, pre[3])
	}

	section := make([]byte, blocks*blockSize-4)
	if _, err := io.ReadFull(r, section); err != nil {
		// Some writers under-declare the block count; tolerate a short tail.
		if err != io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("c3d: read parameter section: %w", err)
		}
	}

	groups := make(map[string]*Group)
	byID := make(map[int]*Group)
	// Parameters may precede their group record; resolve them afterwards.
	pending := make(map[int][]*Param)

	pos := 0
	for {
		if pos+2 > len(section) {
			break
		}
		nameLen := int(int8(section[pos]))
		groupID := int(int8(section[pos+1]))
		if nameLen == 0 || groupID == 0 {
			break
		}
		if nameLen < 0 { // negative length means locked; irrelevant for reading
			nameLen = -nameLen
		}
		pos += 2
		if pos+nameLen > len(section) {
			return nil, fmt.Errorf("c3d: truncated record name at offset %d", pos)
		}
		name := strings.ToUpper(string(section[pos : pos+nameLen]))
		pos += nameLen

		if pos+2 > len(section) {
			return nil, fmt.Errorf("c3d: truncated record offset at %d", pos)
		}
		next := int(int16(binary.LittleEndian.Uint16(section[pos:])))
		nextPos := pos + next
		pos += 2

		if groupID < 0 {
			g := &Group{Name: name, Params: make(map[string]*Param)}
			if pos < len(section) {
				descLen := int(section[pos])
				pos++
				if pos+descLen <= len(section) {
					g.Description = strings.TrimSpace(string(section[pos : pos+descLen]))
				}
			}
			groups[name] = g
			byID[-groupID] = g
			for _, p := range pending[-groupID] {
				g.Params[p.Name] = p
			}
			delete(pending, -groupID)
		} else {
			p, err := readParamBody(section, pos, name)
			if err != nil {
				return nil, err
			}
			if g, ok := byID[groupID]; ok {
				g.Params[p.Name] = p
			} else {
				pending[groupID] = append(pending[groupID], p)
			}
		}

		if next == 0 || nextPos <= 0 || nextPos > len(section) {
			break
		}
		pos = nextPos
	}
	return groups, nil
}

func readParamBody(section []byte, pos int, name string) (*Param, error) {
	if pos+2 > len(section) {
		return nil, fmt.Errorf("c3d: truncated parameter %s", name)
	}
	p := &Param{Name: name, Type: int8(section[pos])}
	nd := int(section[pos+1])
	pos += 2
	if nd > 7 {
		return nil, fmt.Errorf("c3d: parameter %s has %d dimensions", name, nd)
	}
	if pos+nd > len(section) {
		return nil, fmt.Errorf("c3d: truncated dimensions of %s", name)
	}
	p.Dims = make([]int, nd)
	size := 1
	for i := 0; i < nd; i++ {
		p.Dims[i] = int(section[pos+i])
		size *= p.Dims[i]
	}
	pos += nd

	elem := int(p.Type)
	if elem < 0 {
		elem = 1
	}
	total := size * elem
	if pos+total > len(section) {
		return nil, fmt.Errorf("c3d: truncated data of %s", name)
	}
	p.data = append([]byte(nil), section[pos:pos+total]...)
	pos += total

	if pos < len(section) {
		descLen := int(section[pos])
		pos++
		if pos+descLen <= len(section) {
			p.Description = strings.TrimSpace(string(section[pos : pos+descLen]))
		}
	}
	return p, nil
}
