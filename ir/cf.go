package ir

import (
	"iter"
	"slices"

	"github.com/gogpu/nirview/internal/exec"
)

// CFNodeType is the discriminant of a control flow node.
type CFNodeType uint8

const (
	CFNodeBlock CFNodeType = iota
	CFNodeIf
	CFNodeLoop
	// CFNodeFunction is the root of a function body. It is only ever seen
	// as a parent, never inside a list.
	CFNodeFunction
)

var cfNodeTypeNames = [...]string{
	CFNodeBlock:    "block",
	CFNodeIf:       "if",
	CFNodeLoop:     "loop",
	CFNodeFunction: "function",
}

func (t CFNodeType) String() string {
	if int(t) < len(cfNodeTypeNames) {
		return cfNodeTypeNames[t]
	}
	return "unknown"
}

// CFNode is the part shared by every control flow construct: its position
// in the enclosing list and its parent in the nesting tree.
type CFNode struct {
	node exec.Node

	parent *CFNode
	data   cfData
}

// cfData is implemented by the node variants.
type cfData interface {
	cfNodeType() CFNodeType
}

func (*Block) cfNodeType() CFNodeType        { return CFNodeBlock }
func (*If) cfNodeType() CFNodeType           { return CFNodeIf }
func (*Loop) cfNodeType() CFNodeType         { return CFNodeLoop }
func (*FunctionImpl) cfNodeType() CFNodeType { return CFNodeFunction }

// Type returns the node discriminant.
func (n *CFNode) Type() CFNodeType { return n.data.cfNodeType() }

// AsBlock returns the node as a Block if it is one.
func (n *CFNode) AsBlock() (*Block, bool) {
	b, ok := n.data.(*Block)
	return b, ok
}

// AsIf returns the node as an If if it is one.
func (n *CFNode) AsIf() (*If, bool) {
	i, ok := n.data.(*If)
	return i, ok
}

// AsLoop returns the node as a Loop if it is one.
func (n *CFNode) AsLoop() (*Loop, bool) {
	l, ok := n.data.(*Loop)
	return l, ok
}

// AsFunctionImpl returns the node as a function body root if it is one.
func (n *CFNode) AsFunctionImpl() (*FunctionImpl, bool) {
	fi, ok := n.data.(*FunctionImpl)
	return fi, ok
}

// Parent returns the enclosing If, Loop or function root.
// It is nil only for function roots.
func (n *CFNode) Parent() *CFNode { return n.parent }

// Next returns the following sibling, or nil if n is last in its list.
func (n *CFNode) Next() *CFNode {
	it := cfLink.IterAt(n, false)
	return it.Next()
}

// Prev returns the preceding sibling, or nil if n is first in its list.
func (n *CFNode) Prev() *CFNode {
	it := cfLink.IterAt(n, true)
	return it.Next()
}

// Block is a straight-line sequence of instructions.
type Block struct {
	cf CFNode

	index        uint32
	instrs       exec.List[Instr]
	successors   [2]*Block
	predecessors []*Block
}

// CFNode returns the block's control flow node.
func (b *Block) CFNode() *CFNode { return &b.cf }

// Index is the position of the block in program order within its function.
func (b *Block) Index() uint32 { return b.index }

// Instrs iterates over the block's instructions in order.
func (b *Block) Instrs() iter.Seq[*Instr] { return instrLink.All(&b.instrs) }

// InstrsRev iterates over the block's instructions last to first.
func (b *Block) InstrsRev() iter.Seq[*Instr] { return instrLink.Backward(&b.instrs) }

// FirstInstr returns the first instruction or nil.
func (b *Block) FirstInstr() *Instr { return instrLink.First(&b.instrs) }

// LastInstr returns the last instruction or nil.
func (b *Block) LastInstr() *Instr { return instrLink.Last(&b.instrs) }

// IsEmpty reports whether the block has no instructions.
func (b *Block) IsEmpty() bool { return b.instrs.IsEmpty() }

// Phis iterates over the phi instructions at the head of the block.
func (b *Block) Phis() iter.Seq[*Phi] {
	return func(yield func(*Phi) bool) {
		it := instrLink.Iter(&b.instrs)

		for i := it.Next(); i != nil; i = it.Next() {
			p, ok := i.AsPhi()
			if !ok || !yield(p) {
				return
			}
		}
	}
}

// Successors returns the blocks control may flow to next.
// Unused slots are nil; the second slot is only used by a block that
// precedes an If.
func (b *Block) Successors() [2]*Block { return b.successors }

// Predecessors iterates over the blocks flowing into b, lowest index first.
func (b *Block) Predecessors() iter.Seq[*Block] { return slices.Values(b.predecessors) }

// NumPredecessors is the number of predecessor blocks.
func (b *Block) NumPredecessors() int { return len(b.predecessors) }

// HasPredecessor reports whether p flows into b.
func (b *Block) HasPredecessor(p *Block) bool { return slices.Contains(b.predecessors, p) }

// Parent returns the immediately enclosing If, Loop or function root.
func (b *Block) Parent() *CFNode {
	assert(b.cf.parent != nil, "block %d has no parent", b.index)
	return b.cf.parent
}

// Impl returns the function body containing b.
func (b *Block) Impl() *FunctionImpl {
	n := b.Parent()
	for n.parent != nil {
		n = n.parent
	}

	fi, ok := n.AsFunctionImpl()
	assert(ok, "block %d is not inside a function", b.index)

	return fi
}

// FollowingIf returns the If right after b, if any.
func (b *Block) FollowingIf() *If {
	next := b.cf.Next()
	if next == nil {
		return nil
	}

	i, _ := next.AsIf()

	return i
}

// FollowingLoop returns the Loop right after b, if any.
func (b *Block) FollowingLoop() *Loop {
	next := b.cf.Next()
	if next == nil {
		return nil
	}

	l, _ := next.AsLoop()

	return l
}

// If is a two-way structured branch. Both lists are non-empty: an absent
// else branch is a single empty block.
type If struct {
	cf CFNode

	condition Src
	thenList  exec.List[CFNode]
	elseList  exec.List[CFNode]
}

// CFNode returns the if's control flow node.
func (i *If) CFNode() *CFNode { return &i.cf }

// Condition returns the branch condition.
func (i *If) Condition() *Src { return &i.condition }

// ThenList iterates over the nodes of the then branch.
func (i *If) ThenList() iter.Seq[*CFNode] { return cfLink.All(&i.thenList) }

// ElseList iterates over the nodes of the else branch.
func (i *If) ElseList() iter.Seq[*CFNode] { return cfLink.All(&i.elseList) }

func (i *If) FirstThenBlock() *Block { return firstBlock(&i.thenList) }
func (i *If) LastThenBlock() *Block  { return lastBlock(&i.thenList) }
func (i *If) FirstElseBlock() *Block { return firstBlock(&i.elseList) }
func (i *If) LastElseBlock() *Block  { return lastBlock(&i.elseList) }

// FollowingBlock returns the block right after the if in its parent list.
func (i *If) FollowingBlock() *Block { return mustBlock(i.cf.Next()) }

// Loop is a structured loop. It is left through break jumps only.
type Loop struct {
	cf CFNode

	body exec.List[CFNode]
}

// CFNode returns the loop's control flow node.
func (l *Loop) CFNode() *CFNode { return &l.cf }

// Body iterates over the nodes of the loop body.
func (l *Loop) Body() iter.Seq[*CFNode] { return cfLink.All(&l.body) }

// FirstBlock returns the loop header: the target of continue jumps.
func (l *Loop) FirstBlock() *Block { return firstBlock(&l.body) }

// LastBlock returns the last block of the body.
func (l *Loop) LastBlock() *Block { return lastBlock(&l.body) }

// FollowingBlock returns the block right after the loop: the target of
// break jumps.
func (l *Loop) FollowingBlock() *Block { return mustBlock(l.cf.Next()) }

func firstBlock(l *exec.List[CFNode]) *Block { return mustBlock(cfLink.First(l)) }
func lastBlock(l *exec.List[CFNode]) *Block  { return mustBlock(cfLink.Last(l)) }

func mustBlock(n *CFNode) *Block {
	assert(n != nil, "control flow list ends without a block")

	b, ok := n.AsBlock()
	assert(ok, "expected a block, got %v", n.Type())

	return b
}
