package vulkaninja

import (
	"fmt"

	"golang.org/x/exp/slog"
)

type Allocation struct {
	Offset uint64
	Size   uint64
}

func (a *Allocation) String() string {
	return fmt.Sprintf("[%d %d]", a.Offset, a.Size)
}

type IAllocator interface {
	Free(a *Allocation)
	Allocate(size uint64, align uint64) *Allocation
}

// LinearAllocator hands out aligned ranges of a fixed size block. Allocations
// are kept sorted by offset and the first gap that fits is used.
type LinearAllocator struct {
	Size   uint64
	allocs []*Allocation
}

func makeAlignUp(a uint64, align uint64) uint64 {
	if align == 0 {
		return a
	}
	m := a % align
	if m == 0 {
		return a
	}
	a = (a - m) + align
	return a
}

func (p *LinearAllocator) Free(fa *Allocation) {
	fi := -1
	for i, a := range p.allocs {
		if a == fa {
			fi = i
		}
	}
	if fi != -1 {
		p.allocs = append(p.allocs[:fi], p.allocs[fi+1:]...)
	}
}

// Allocate returns nil when no gap of size bytes is left.
func (p *LinearAllocator) Allocate(size uint64, align uint64) *Allocation {
	if len(p.allocs) == 0 {
		if size > p.Size {
			Logger().Debug("allocation does not fit", slog.Uint64("size", size), slog.Uint64("capacity", p.Size))
			return nil
		}
		na := &Allocation{Offset: 0, Size: size}
		p.allocs = []*Allocation{na}
		return na
	}

	// We can insert at the head of the block
	if p.allocs[0].Offset >= size {
		na := &Allocation{Offset: 0, Size: size}
		p.allocs = append([]*Allocation{na}, p.allocs...)
		return na
	}

	for i := 0; i+1 < len(p.allocs); i++ {
		c, n := p.allocs[i], p.allocs[i+1]

		l := makeAlignUp(c.Offset+c.Size, align)
		h := n.Offset
		if l <= h && h-l >= size {
			na := &Allocation{Offset: l, Size: size}
			p.allocs = append(p.allocs[:i+1], append([]*Allocation{na}, p.allocs[i+1:]...)...)
			return na
		}
	}

	last := p.allocs[len(p.allocs)-1]
	nl := makeAlignUp(last.Offset+last.Size, align)
	if nl <= p.Size && p.Size-nl >= size {
		na := &Allocation{Offset: nl, Size: size}
		p.allocs = append(p.allocs, na)
		return na
	}
	Logger().Debug("allocation does not fit", slog.Uint64("size", size), slog.Uint64("capacity", p.Size))
	return nil
}

// Used returns the end of the last allocation
func (p *LinearAllocator) Used() uint64 {
	if len(p.allocs) == 0 {
		return 0
	}
	last := p.allocs[len(p.allocs)-1]
	return last.Offset + last.Size
}

func (p *LinearAllocator) String() string {
	return fmt.Sprintf("%v", p.allocs)
}
