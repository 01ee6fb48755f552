package gridout

import (
	"fmt"
	"io"
	"math"

	"github.com/notargets/gridgen/grid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// EpsFlags control the encapsulated postscript output
type EpsFlags struct {
	Size          float64 // width of the picture in points
	LineWidth     float64
	ColorBoundary bool // draw boundary lines red
	CellNumbers   bool
	// 3D meshes are seen from Azimuth degrees above the xy plane after
	// turning them Turn degrees about the z axis
	Azimuth, Turn float64
}

func DefaultEpsFlags() EpsFlags {
	return EpsFlags{Size: 300, LineWidth: 0.5, Azimuth: 60, Turn: 30}
}

func (f EpsFlags) project(p r3.Vec, dim int) (x, y float64) {
	if dim == 2 {
		return p.X, p.Y
	}
	az, turn := f.Azimuth*math.Pi/180, f.Turn*math.Pi/180
	x = p.X*math.Cos(turn) - p.Y*math.Sin(turn)
	y = (p.X*math.Sin(turn)+p.Y*math.Cos(turn))*math.Cos(az) + p.Z*math.Sin(az)
	return
}

type segment struct {
	x0, y0, x1, y1 float64
	boundary       bool
}

// WriteEPS draws every line of the active mesh once, scaled to flags.Size
// points wide
func WriteEPS(t *grid.Triangulation, w io.Writer, flags EpsFlags) error {
	if t.Empty() {
		return fmt.Errorf("cannot write an empty triangulation")
	}
	if flags.Size <= 0 {
		return fmt.Errorf("eps size %g must be positive", flags.Size)
	}
	dim := t.Dim()
	lines := t.ActiveLines()
	segs := make([]segment, len(lines))
	var xs, ys []float64
	for i, l := range lines {
		x0, y0 := flags.project(t.Vertex(l.V0), dim)
		x1, y1 := flags.project(t.Vertex(l.V1), dim)
		segs[i] = segment{x0, y0, x1, y1, l.AtBoundary}
		xs = append(xs, x0, x1)
		ys = append(ys, y0, y1)
	}
	xmin, xmax := floats.Min(xs), floats.Max(xs)
	ymin, ymax := floats.Min(ys), floats.Max(ys)
	if xmax-xmin <= 0 {
		return fmt.Errorf("degenerate picture of width %g", xmax-xmin)
	}
	scale := flags.Size / (xmax - xmin)
	height := (ymax - ymin) * scale

	ew := &errWriter{w: w}
	ew.printf("%%!PS-Adobe-2.0 EPSF-1.2\n")
	ew.printf("%%%%Title: gridgen output\n")
	ew.printf("%%%%Creator: gridgen\n")
	ew.printf("%%%%BoundingBox: 0 0 %d %d\n", int(math.Ceil(flags.Size+1)), int(math.Ceil(height+1)))
	ew.printf("/m {moveto} bind def\n")
	ew.printf("/x {lineto stroke} bind def\n")
	ew.printf("/b {0 0 0 setrgbcolor} def\n")
	ew.printf("/r {1 0 0 setrgbcolor} def\n")
	if flags.CellNumbers {
		ew.printf("/Helvetica findfont %g scalefont setfont\n", math.Max(flags.Size/100, 4))
	}
	ew.printf("%%%%EndProlog\n\n")
	ew.printf("%g setlinewidth\n", flags.LineWidth)

	for _, s := range segs {
		color := "b"
		if s.boundary && flags.ColorBoundary {
			color = "r"
		}
		ew.printf("%s %.6g %.6g m %.6g %.6g x\n", color,
			(s.x0-xmin)*scale, (s.y0-ymin)*scale,
			(s.x1-xmin)*scale, (s.y1-ymin)*scale)
	}
	if flags.CellNumbers {
		ew.printf("b\n")
		for _, c := range t.ActiveCells() {
			x, y := flags.project(c.Center(), dim)
			ew.printf("%.6g %.6g m (%d) show\n", (x-xmin)*scale, (y-ymin)*scale, c.ID)
		}
	}
	ew.printf("showpage\n")
	return ew.err
}
