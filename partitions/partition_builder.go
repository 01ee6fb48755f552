// Package partitions splits the active cells of a triangulation into
// subdomains and measures how strongly the subdomains are coupled.
package partitions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/notargets/gridgen/grid"
	"go.uber.org/zap"
)

// PartitionBuilder constructs partitions from the active cells of a mesh
type PartitionBuilder struct {
	Tria          *grid.Triangulation
	NumPartitions int
	Strategy      PartitionStrategy
	Logger        *zap.Logger
}

// PartitionStrategy defines how elements are grouped
type PartitionStrategy int

const (
	// Simple strategies
	BlockPartition PartitionStrategy = iota // Consecutive active cells
	RoundRobin                              // Distribute cyclically

	// Geometric and graph based strategies
	GraphPartition    // Greedy breadth first growth over face neighbours
	SpaceFillingCurve // Morton order of the cell centres
)

var strategyNames = map[PartitionStrategy]string{
	BlockPartition:    "block",
	RoundRobin:        "roundrobin",
	GraphPartition:    "graph",
	SpaceFillingCurve: "sfc",
}

func (s PartitionStrategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("PartitionStrategy(%d)", int(s))
}

// ParseStrategy accepts the names printed by String, plus "round-robin" and
// "morton"
func ParseStrategy(name string) (PartitionStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "block", "":
		return BlockPartition, nil
	case "roundrobin", "round-robin":
		return RoundRobin, nil
	case "graph":
		return GraphPartition, nil
	case "sfc", "morton":
		return SpaceFillingCurve, nil
	}
	return 0, fmt.Errorf("unknown partition strategy %q", name)
}

// MeshConnectivity is the face adjacency of the active cells. Elements are
// numbered in active cell order.
type MeshConnectivity struct {
	NumElements int
	Levels      []int
	// EToE[k][f] lists the active cells across face f of element k: none on
	// the boundary, two or four behind a hanging face
	EToE [][][]int
	// centres of the cells, for geometric strategies
	centers [][3]float64
}

// NewMeshConnectivity collects the face adjacency of the active cells of t
func NewMeshConnectivity(t *grid.Triangulation) *MeshConnectivity {
	active := t.ActiveCells()
	index := make(map[int]int, len(active))
	for k, c := range active {
		index[c.ID] = k
	}
	nf := t.Info().FacesPerCell
	mc := &MeshConnectivity{
		NumElements: len(active),
		Levels:      make([]int, len(active)),
		EToE:        make([][][]int, len(active)),
		centers:     make([][3]float64, len(active)),
	}
	for k, c := range active {
		mc.Levels[k] = c.Level
		p := c.Center()
		mc.centers[k] = [3]float64{p.X, p.Y, p.Z}
		mc.EToE[k] = make([][]int, nf)
		for f := 0; f < nf; f++ {
			for _, n := range t.ActiveFaceNeighbors(c, f) {
				mc.EToE[k][f] = append(mc.EToE[k][f], index[n.ID])
			}
		}
	}
	return mc
}

// Neighbors returns the distinct face neighbours of element k, ascending
func (mc *MeshConnectivity) Neighbors(k int) []int {
	seen := make(map[int]bool)
	var nbrs []int
	for _, face := range mc.EToE[k] {
		for _, n := range face {
			if !seen[n] {
				seen[n] = true
				nbrs = append(nbrs, n)
			}
		}
	}
	sort.Ints(nbrs)
	return nbrs
}

// BuildPartitions creates a partition layout of the active cells
func (pb *PartitionBuilder) BuildPartitions() (*PartitionLayout, error) {
	if pb.Tria == nil || pb.Tria.Empty() {
		return nil, fmt.Errorf("cannot partition an empty triangulation")
	}
	mesh := NewMeshConnectivity(pb.Tria)
	numPartitions := pb.NumPartitions
	if numPartitions < 1 {
		return nil, fmt.Errorf("need at least one partition, got %d", numPartitions)
	}
	if numPartitions > mesh.NumElements {
		return nil, fmt.Errorf("%d partitions for %d active cells", numPartitions, mesh.NumElements)
	}

	eToP, err := pb.partitionElements(mesh, numPartitions)
	if err != nil {
		return nil, err
	}
	partitions := createPartitions(mesh, eToP, numPartitions)
	kpartMax := calculateKpartMax(partitions)
	for i := range partitions {
		partitions[i].MaxElements = kpartMax
	}

	layout := &PartitionLayout{
		Partitions:    partitions,
		KpartMax:      kpartMax,
		TotalElements: mesh.NumElements,
		NumPartitions: numPartitions,
		EToP:          eToP,
		globalToLocal: make([]map[int]int, numPartitions),
	}
	for p, part := range partitions {
		layout.globalToLocal[p] = make(map[int]int, part.NumElements)
		for l, k := range part.Elements {
			layout.globalToLocal[p][k] = l
		}
	}
	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}

	if pb.Logger != nil {
		stats := layout.PartitionStatistics()
		pb.Logger.Debug("partitioned active cells",
			zap.Stringer("strategy", pb.Strategy),
			zap.Int("partitions", numPartitions),
			zap.Int("cells", mesh.NumElements),
			zap.Float64("imbalance", stats.Imbalance))
	}
	return layout, nil
}

// blockSizes splits n elements into parts sizes differing by at most one
func blockSizes(n, parts int) []int {
	sizes := make([]int, parts)
	for p := range sizes {
		sizes[p] = n / parts
		if p < n%parts {
			sizes[p]++
		}
	}
	return sizes
}

// assignInOrder gives consecutive runs of order to the partitions
func assignInOrder(order []int, numPartitions int) []int {
	eToP := make([]int, len(order))
	i := 0
	for p, size := range blockSizes(len(order), numPartitions) {
		for j := 0; j < size; j++ {
			eToP[order[i]] = p
			i++
		}
	}
	return eToP
}

// partitionElements assigns elements to partitions
func (pb *PartitionBuilder) partitionElements(mesh *MeshConnectivity, numPartitions int) ([]int, error) {
	n := mesh.NumElements
	switch pb.Strategy {
	case BlockPartition:
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		return assignInOrder(order, numPartitions), nil

	case RoundRobin:
		eToP := make([]int, n)
		for i := range eToP {
			eToP[i] = i % numPartitions
		}
		return eToP, nil

	case SpaceFillingCurve:
		return assignInOrder(mortonOrder(mesh.centers, pb.Tria.Dim()), numPartitions), nil

	case GraphPartition:
		return growPartitions(mesh, numPartitions), nil
	}
	return nil, fmt.Errorf("unknown partition strategy %v", pb.Strategy)
}

// growPartitions fills the partitions one after the other by breadth first
// search from the lowest unassigned cell, which keeps partitions compact
func growPartitions(mesh *MeshConnectivity, numPartitions int) []int {
	eToP := make([]int, mesh.NumElements)
	for i := range eToP {
		eToP[i] = -1
	}
	next := 0 // lowest possibly unassigned element
	for p, size := range blockSizes(mesh.NumElements, numPartitions) {
		var queue []int
		for count := 0; count < size; {
			if len(queue) == 0 {
				for eToP[next] >= 0 {
					next++
				}
				queue = append(queue, next)
			}
			k := queue[0]
			queue = queue[1:]
			if eToP[k] >= 0 {
				continue
			}
			eToP[k] = p
			count++
			for _, n := range mesh.Neighbors(k) {
				if eToP[n] < 0 {
					queue = append(queue, n)
				}
			}
		}
	}
	return eToP
}

// mortonOrder sorts the points along the Z-order curve of their bounding box
func mortonOrder(points [][3]float64, dim int) []int {
	const bits = 21
	lo, hi := points[0], points[0]
	for _, p := range points {
		for d := 0; d < dim; d++ {
			if p[d] < lo[d] {
				lo[d] = p[d]
			}
			if p[d] > hi[d] {
				hi[d] = p[d]
			}
		}
	}
	codes := make([]uint64, len(points))
	for i, p := range points {
		var q [3]uint64
		for d := 0; d < dim; d++ {
			if w := hi[d] - lo[d]; w > 0 {
				q[d] = uint64((p[d] - lo[d]) / w * float64(uint64(1)<<bits-1))
			}
		}
		for b := 0; b < bits; b++ {
			for d := 0; d < dim; d++ {
				codes[i] |= (q[d] >> b & 1) << (b*dim + d)
			}
		}
	}
	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return codes[order[a]] < codes[order[b]] })
	return order
}

// createPartitions builds partition structures from element assignments
func createPartitions(mesh *MeshConnectivity, eToP []int, numPartitions int) []Partition {
	partitions := make([]Partition, numPartitions)
	for i := range partitions {
		partitions[i] = Partition{ID: i, Elements: make([]int, 0)}
	}
	for elem, part := range eToP {
		partitions[part].Elements = append(partitions[part].Elements, elem)
		partitions[part].NumElements++
	}
	for i := range partitions {
		partitions[i].LevelGroups = createLevelGroups(mesh, &partitions[i])
	}
	return partitions
}

// createLevelGroups groups the cells of a partition by refinement level,
// coarsest first
func createLevelGroups(mesh *MeshConnectivity, p *Partition) []LevelGroup {
	byLevel := make(map[int][]int)
	for i, elem := range p.Elements {
		byLevel[mesh.Levels[elem]] = append(byLevel[mesh.Levels[elem]], i)
	}
	levels := make([]int, 0, len(byLevel))
	for l := range byLevel {
		levels = append(levels, l)
	}
	sort.Ints(levels)

	groups := make([]LevelGroup, 0, len(levels))
	start := 0
	for _, l := range levels {
		ids := byLevel[l]
		groups = append(groups, LevelGroup{Level: l, StartIndex: start, Count: len(ids), LocalIDs: ids})
		start += len(ids)
	}
	return groups
}

func calculateKpartMax(partitions []Partition) int {
	kpartMax := 0
	for _, p := range partitions {
		if p.NumElements > kpartMax {
			kpartMax = p.NumElements
		}
	}
	return kpartMax
}

// ComputeMetrics reports per partition cell counts and face coupling
func ComputeMetrics(layout *PartitionLayout, mesh *MeshConnectivity) ([]PartitionMetrics, error) {
	if mesh.NumElements != layout.TotalElements {
		return nil, fmt.Errorf("layout has %d elements, mesh %d", layout.TotalElements, mesh.NumElements)
	}
	metrics := make([]PartitionMetrics, layout.NumPartitions)
	neighbors := make([]map[int]bool, layout.NumPartitions)
	for p := range metrics {
		metrics[p] = PartitionMetrics{ID: p, ElementCounts: make(map[int]int)}
		neighbors[p] = make(map[int]bool)
	}
	for k := 0; k < mesh.NumElements; k++ {
		p := layout.EToP[k]
		m := &metrics[p]
		m.ElementCounts[mesh.Levels[k]]++
		for _, face := range mesh.EToE[k] {
			if len(face) == 0 {
				m.BoundaryFaces++
				continue
			}
			for _, n := range face {
				if q := layout.EToP[n]; q != p {
					m.InterfaceFaces++
					neighbors[p][q] = true
				}
			}
		}
	}
	for p := range metrics {
		for q := range neighbors[p] {
			metrics[p].Neighbors = append(metrics[p].Neighbors, q)
		}
		sort.Ints(metrics[p].Neighbors)
		metrics[p].NumNeighbors = len(metrics[p].Neighbors)
	}
	return metrics, nil
}
