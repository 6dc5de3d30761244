package ir

import (
	"cmp"
	"slices"

	"nikand.dev/go/heap"
)

// ReachableBlocks returns the blocks reachable from the start block along
// successor edges, in index order. Blocks are visited lowest index first.
func ReachableBlocks(fi *FunctionImpl) []*Block {
	assert(fi.numBlocks != 0, "function %q body is not finished", fi.Function().name)

	seen := make([]bool, fi.numBlocks)
	work := heap.Heap[*Block]{Less: blockLess}

	start := fi.StartBlock()
	seen[start.index] = true
	work.Push(start)

	res := make([]*Block, 0, fi.numBlocks)

	for work.Len() != 0 {
		blk := work.Pop()
		res = append(res, blk)

		for _, s := range blk.successors {
			if s == nil || seen[s.index] {
				continue
			}

			seen[s.index] = true
			work.Push(s)
		}
	}

	slices.SortFunc(res, func(a, b *Block) int { return cmp.Compare(a.index, b.index) })

	return res
}

func blockLess(d []*Block, i, j int) bool { return d[i].index < d[j].index }
