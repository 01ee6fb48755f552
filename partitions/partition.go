package partitions

import (
	"fmt"
	"math"
)

// Partition is a subdomain: a set of active cells, identified by their
// position in the active cell order of the triangulation
type Partition struct {
	ID int

	// Element membership
	Elements    []int // active cell indices in this partition
	NumElements int
	MaxElements int // size of the largest partition

	// Hanging node meshes mix refinement levels; cells are grouped by level
	LevelGroups []LevelGroup
}

// LevelGroup collects the cells of one refinement level within a partition
type LevelGroup struct {
	Level      int
	StartIndex int   // position of the first cell in the group
	Count      int   // cells in the group
	LocalIDs   []int // indices into Partition.Elements
}

// PartitionLayout is the decomposition of the active cells into partitions
type PartitionLayout struct {
	Partitions []Partition

	KpartMax      int // max(NumElements) across all partitions
	TotalElements int
	NumPartitions int

	// EToP[k] is the partition of active cell k
	EToP []int

	// globalToLocal[p][k] is the position of active cell k in partition p
	globalToLocal []map[int]int
}

// GetPartition returns the partition containing active cell k, -1 if k is
// out of range
func (pl *PartitionLayout) GetPartition(elementID int) int {
	if elementID < 0 || elementID >= len(pl.EToP) {
		return -1
	}
	return pl.EToP[elementID]
}

// LocalIndex returns the position of active cell k within its partition
func (pl *PartitionLayout) LocalIndex(elementID int) int {
	p := pl.GetPartition(elementID)
	if p < 0 {
		return -1
	}
	if l, ok := pl.globalToLocal[p][elementID]; ok {
		return l
	}
	return -1
}

// SubdomainIDs returns the partition of every active cell, in active cell
// order, ready to be written as cell data
func (pl *PartitionLayout) SubdomainIDs() []int {
	return append([]int(nil), pl.EToP...)
}

// ValidateLayout checks partition consistency
func (pl *PartitionLayout) ValidateLayout() error {
	if len(pl.Partitions) != pl.NumPartitions {
		return fmt.Errorf("%d partitions, NumPartitions is %d", len(pl.Partitions), pl.NumPartitions)
	}
	if len(pl.EToP) != pl.TotalElements {
		return fmt.Errorf("EToP has %d entries for %d elements", len(pl.EToP), pl.TotalElements)
	}
	actualMax, total := 0, 0
	for _, p := range pl.Partitions {
		if p.NumElements != len(p.Elements) {
			return fmt.Errorf("partition %d: NumElements %d != %d elements", p.ID, p.NumElements, len(p.Elements))
		}
		if p.NumElements > actualMax {
			actualMax = p.NumElements
		}
		if p.MaxElements != pl.KpartMax {
			return fmt.Errorf("partition %d: MaxElements %d != KpartMax %d",
				p.ID, p.MaxElements, pl.KpartMax)
		}
		for _, k := range p.Elements {
			if pl.GetPartition(k) != p.ID {
				return fmt.Errorf("partition %d lists element %d owned by partition %d", p.ID, k, pl.GetPartition(k))
			}
		}
		total += p.NumElements
	}
	if actualMax != pl.KpartMax {
		return fmt.Errorf("computed KpartMax %d != stored KpartMax %d",
			actualMax, pl.KpartMax)
	}
	if total != pl.TotalElements {
		return fmt.Errorf("partitions hold %d elements, expected %d", total, pl.TotalElements)
	}
	return nil
}

// PartitionStatistics computes load balance metrics
func (pl *PartitionLayout) PartitionStatistics() PartitionStats {
	stats := PartitionStats{
		NumPartitions: pl.NumPartitions,
		MinElements:   math.MaxInt32,
		AvgElements:   float64(pl.TotalElements) / float64(pl.NumPartitions),
	}
	for _, p := range pl.Partitions {
		if p.NumElements < stats.MinElements {
			stats.MinElements = p.NumElements
		}
		if p.NumElements > stats.MaxElements {
			stats.MaxElements = p.NumElements
		}
	}
	stats.Imbalance = float64(stats.MaxElements) / stats.AvgElements
	return stats
}

type PartitionStats struct {
	NumPartitions int
	MinElements   int
	MaxElements   int
	AvgElements   float64
	Imbalance     float64 // MaxElements / AvgElements
}

// PartitionMetrics describes the coupling of one partition to the others
type PartitionMetrics struct {
	ID            int
	ElementCounts map[int]int // cells per refinement level
	// InterfaceFaces counts the (sub)faces shared with other partitions;
	// a coarse face next to two finer cells counts twice
	InterfaceFaces int
	BoundaryFaces  int
	Neighbors      []int // partitions sharing a face, ascending
	NumNeighbors   int
}
