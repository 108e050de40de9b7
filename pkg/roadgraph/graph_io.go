package roadgraph

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/replanx/pkg/geo"
	"github.com/lintang-b-s/replanx/pkg/util"
)

// WriteGraph stores g as bzip2-compressed text: a "numVertices numEdges" header, one
// "osmID lat lon" line per vertex and one "tail head length cost" line per edge.
func (g *Graph) WriteGraph(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}
	if err := g.Encode(bz); err != nil {
		bz.Close()
		return err
	}
	return bz.Close()
}

func (g *Graph) Encode(out io.Writer) error {
	w := bufio.NewWriter(out)

	fmt.Fprintf(w, "%d %d\n", len(g.vertices), g.numEdges)

	for _, v := range g.vertices {
		latF := strconv.FormatFloat(v.coord.Lat, 'f', -1, 64)
		lonF := strconv.FormatFloat(v.coord.Lon, 'f', -1, 64)
		fmt.Fprintf(w, "%d %s %s\n", v.osmID, latF, lonF)
	}

	var err error
	g.ForOutEdges(func(e *Edge) {
		if err != nil {
			return
		}
		lengthF := strconv.FormatFloat(e.length, 'f', -1, 64)
		costF := strconv.FormatFloat(e.cost, 'f', -1, 64)
		_, err = fmt.Fprintf(w, "%d %d %s %s\n", e.tail, e.head, lengthF, costF)
	})
	if err != nil {
		return err
	}
	return w.Flush()
}

func ReadGraph(filename string) (*Graph, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bz, err := bzip2.NewReader(f, nil)
	if err != nil {
		return nil, err
	}
	defer bz.Close()

	return Decode(bz)
}

func Decode(r io.Reader) (*Graph, error) {
	br := bufio.NewReader(r)

	line, err := util.ReadLine(br)
	if err != nil {
		return nil, err
	}
	tokens := util.Fields(line)
	if len(tokens) != 2 {
		return nil, fmt.Errorf("invalid graph header %q", line)
	}
	numVertices, err := strconv.Atoi(tokens[0])
	if err != nil {
		return nil, err
	}
	numEdges, err := strconv.Atoi(tokens[1])
	if err != nil {
		return nil, err
	}

	g := NewGraph()
	for i := 0; i < numVertices; i++ {
		line, err := util.ReadLine(br)
		if err != nil {
			return nil, err
		}
		osmID, coord, err := parseVertex(line)
		if err != nil {
			return nil, fmt.Errorf("vertex %d: %w", i, err)
		}
		id := Index(len(g.vertices))
		g.vertices = append(g.vertices, &Vertex{id: id, osmID: osmID, coord: coord})
		g.outEdges = append(g.outEdges, make([]*Edge, 0, 2))
		g.inEdges = append(g.inEdges, make([]*Edge, 0, 2))
		if osmID != 0 {
			g.osmIndex[osmID] = id
		}
	}

	for i := 0; i < numEdges; i++ {
		line, err := util.ReadLine(br)
		if err != nil {
			return nil, err
		}
		tail, head, length, cost, err := parseEdge(line)
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		if !g.HasVertex(tail) || !g.HasVertex(head) {
			return nil, fmt.Errorf("edge %d: %w", i, ErrVertexNotFound)
		}
		g.addEdgeWithCost(tail, head, length, cost)
	}
	return g, nil
}

func parseVertex(line string) (int64, geo.Coordinate, error) {
	tokens := strings.Fields(line)
	if len(tokens) != 3 {
		return 0, geo.Coordinate{}, fmt.Errorf("expected 3 fields, got %d", len(tokens))
	}
	osmID, err := strconv.ParseInt(tokens[0], 10, 64)
	if err != nil {
		return 0, geo.Coordinate{}, err
	}
	lat, err := util.StringToFloat64(tokens[1])
	if err != nil {
		return 0, geo.Coordinate{}, err
	}
	lon, err := util.StringToFloat64(tokens[2])
	if err != nil {
		return 0, geo.Coordinate{}, err
	}
	return osmID, geo.NewCoordinate(lat, lon), nil
}

func parseEdge(line string) (Index, Index, float64, float64, error) {
	tokens := strings.Fields(line)
	if len(tokens) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("expected 4 fields, got %d", len(tokens))
	}
	tail, err := strconv.ParseUint(tokens[0], 10, 32)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	head, err := strconv.ParseUint(tokens[1], 10, 32)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	length, err := util.StringToFloat64(tokens[2])
	if err != nil {
		return 0, 0, 0, 0, err
	}
	cost, err := util.StringToFloat64(tokens[3])
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return Index(tail), Index(head), length, cost, nil
}
