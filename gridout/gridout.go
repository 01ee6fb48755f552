// Package gridout writes the active cells of a triangulation in EPS, legacy
// VTK, VTU and gofem mesh formats.
package gridout

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/notargets/gridgen/grid"
	"gonum.org/v1/gonum/spatial/r3"
)

// Options collects the settings of all writers; WriteFile uses the part
// matching the file extension
type Options struct {
	Eps EpsFlags
	Vtk VtkFlags
	// Partition holds a subdomain id per active cell for the .msh writer
	Partition []int
}

func DefaultOptions() Options {
	return Options{Eps: DefaultEpsFlags(), Vtk: VtkFlags{Title: "gridgen"}}
}

// WriteFile writes t to path in the format given by its extension: .eps,
// .vtk, .vtu or .msh
func WriteFile(t *grid.Triangulation, path string, opts Options) (err error) {
	ext := strings.ToLower(filepath.Ext(path))
	var write func(io.Writer) error
	switch ext {
	case ".eps":
		write = func(w io.Writer) error { return WriteEPS(t, w, opts.Eps) }
	case ".vtk":
		write = func(w io.Writer) error { return WriteVTK(t, w, opts.Vtk) }
	case ".vtu":
		write = func(w io.Writer) error { return WriteVTU(t, w, opts.Vtk.CellData) }
	case ".msh":
		write = func(w io.Writer) error { return WriteMsh(t, w, opts.Partition) }
	default:
		return fmt.Errorf("unknown output format %q for %s", ext, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	bw := bufio.NewWriter(f)
	if err = write(bw); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return bw.Flush()
}

// usedVertices numbers the vertices of the active cells consecutively. It
// returns the global indices in output order and the output index of each
// global vertex, -1 for unused ones.
func usedVertices(t *grid.Triangulation) (order, index []int) {
	used := t.UsedVertices()
	index = make([]int, len(used))
	for v, u := range used {
		index[v] = -1
		if u {
			index[v] = len(order)
			order = append(order, v)
		}
	}
	return
}

func checkFields(t *grid.Triangulation, fields map[string][]int) ([]string, error) {
	n := t.NActiveCells()
	names := make([]string, 0, len(fields))
	for name, vals := range fields {
		if len(vals) != n {
			return nil, fmt.Errorf("cell field %q has %d values for %d active cells", name, len(vals), n)
		}
		if strings.ContainsAny(name, " \t\n") {
			return nil, fmt.Errorf("cell field name %q contains whitespace", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func point(p r3.Vec) [3]float64 { return [3]float64{p.X, p.Y, p.Z} }

// errWriter keeps the first write error so formatting code can stay linear
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
