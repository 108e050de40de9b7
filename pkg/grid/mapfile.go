package grid

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/replanx/pkg/util"
)

const (
	SYMBOL_FREE     = '.'
	SYMBOL_OBSTACLE = '#'
	SYMBOL_START    = 'S'
	SYMBOL_GOAL     = 'G'
)

// Map is a parsed map file: the grid plus the optional start and goal markers.
type Map struct {
	Grid     *Grid
	Start    Cell
	Goal     Cell
	HasStart bool
	HasGoal  bool
}

// StartGoal returns the markers or ErrMissingMarker when either is absent.
func (m *Map) StartGoal() (Cell, Cell, error) {
	if !m.HasStart || !m.HasGoal {
		return Cell{}, Cell{}, ErrMissingMarker
	}
	return m.Start, m.Goal, nil
}

// ParseRows builds a map from text rows. '.' is free, '#', '@' and 'T' are obstacles, 'S' and
// 'G' mark the start and the goal (both free).
func ParseRows(rows []string, conn Connectivity) (*Map, error) {
	trimmed := make([]string, 0, len(rows))
	for _, r := range rows {
		r = strings.TrimRight(r, "\r\n")
		if r == "" {
			continue
		}
		trimmed = append(trimmed, r)
	}
	if len(trimmed) == 0 || len(trimmed[0]) == 0 {
		return nil, ErrEmptyGrid
	}

	width := len(trimmed[0])
	g, err := New(width, len(trimmed), conn)
	if err != nil {
		return nil, err
	}

	m := &Map{Grid: g}
	for y, row := range trimmed {
		if len(row) != width {
			return nil, util.WrapErrorf(ErrNonRectangular, util.ErrBadParamInput,
				"row %d has %d columns, expected %d", y, len(row), width)
		}
		for x, sym := range row {
			c := NewCell(x, y)
			switch sym {
			case SYMBOL_FREE, ' ':
			case SYMBOL_OBSTACLE, '@', 'T':
				g.obstacle[g.index(c)] = true
			case SYMBOL_START:
				m.Start, m.HasStart = c, true
			case SYMBOL_GOAL:
				m.Goal, m.HasGoal = c, true
			default:
				return nil, util.WrapErrorf(ErrUnknownSymbol, util.ErrBadParamInput,
					"symbol %q at %v", sym, c)
			}
		}
	}
	return m, nil
}

// ReadMap reads a map file. Files ending in .bz2 are decompressed on the fly.
func ReadMap(filename string, conn Connectivity) (*Map, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(filename, ".bz2") {
		bz, err := bzip2.NewReader(f, nil)
		if err != nil {
			return nil, err
		}
		defer bz.Close()
		r = bz
	}
	return DecodeMap(r, conn)
}

func DecodeMap(r io.Reader, conn Connectivity) (*Map, error) {
	br := bufio.NewReader(r)
	rows := make([]string, 0)
	for {
		line, err := util.ReadLine(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		rows = append(rows, line)
	}
	return ParseRows(rows, conn)
}

// WriteMap writes m in the format ParseRows reads, bzip2-compressed when filename ends in .bz2.
func WriteMap(filename string, m *Map) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	if !strings.HasSuffix(filename, ".bz2") {
		return EncodeMap(f, m)
	}

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}
	if err := EncodeMap(bz, m); err != nil {
		bz.Close()
		return err
	}
	return bz.Close()
}

func EncodeMap(w io.Writer, m *Map) error {
	bw := bufio.NewWriter(w)
	g := m.Grid
	for y := 0; y < g.height; y++ {
		var sb strings.Builder
		for x := 0; x < g.width; x++ {
			c := NewCell(x, y)
			switch {
			case m.HasStart && c == m.Start:
				sb.WriteByte(SYMBOL_START)
			case m.HasGoal && c == m.Goal:
				sb.WriteByte(SYMBOL_GOAL)
			case g.IsObstacle(c):
				sb.WriteByte(SYMBOL_OBSTACLE)
			default:
				sb.WriteByte(SYMBOL_FREE)
			}
		}
		if _, err := fmt.Fprintln(bw, sb.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}
