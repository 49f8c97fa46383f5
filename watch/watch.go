// Package watch implements the per-literal watcher lists used by the
// two-watched-literal propagation engine. Grounded on the original's
// async_watches.{h,cc}: each watched-literal index owns a small inline
// "pre-watchers" array (checked first, no block fetch required) plus
// a chain of fixed-size watcher blocks reached through a head-pointer,
// each block carrying an explicit next_block pointer and marking an
// empty slot with a valid=0 flag rather than unlinking it from a
// singly-linked list one node at a time.
package watch

import (
	"encoding/binary"

	"github.com/sarchlab/satx/clause"
	"github.com/sarchlab/satx/lit"
	"github.com/sarchlab/satx/mem"
)

// PreWatch is the number of inline watcher slots a watch index holds
// before spilling into the block chain (spec.md §3's "small inline
// pre-watchers array").
const PreWatch = 2

// BlockSize is the number of watcher nodes per chained block.
const BlockSize = 4

const nodeStride = 9 // valid(1) + clause ref(4) + blocker(4)
const headStride = PreWatch*nodeStride + 4
const blockStride = BlockSize*nodeStride + 4

// nilBlock is the null block index — block index 0 is never issued.
const nilBlock uint32 = 0

// Node is one watcher slot's contents: the clause being watched and a
// cached blocking literal that can short-circuit the propagation check
// without dereferencing the clause. Valid is false for an empty slot.
type Node struct {
	Valid   bool
	Clause  clause.Ref
	Blocker lit.Lit
}

// Slot addresses one watcher's storage location: either one of a
// watch index's inline pre-watchers (Block == nilBlock) or a node
// inside a chained block.
type Slot struct {
	Block uint32
	Index int
}

// Store owns, per watch index, a pre-watchers array and the head of a
// block chain, plus a pool of blocks shared across every watch index
// with a free list threading reclaimed blocks.
type Store struct {
	backing *mem.Port

	headsBase  uint64
	blocksBase uint64

	numWatchIndices int
	blockCapacity   uint32

	nextFreshBlock uint32 // first never-yet-used block slot
	freeBlockHead  uint32
}

// NewStore creates a watch store for numWatchIndices literal slots
// (2*NumVars, see lit.WatchIndex) with room for blockCapacity chained
// blocks, every watch list initially empty.
func NewStore(backing *mem.Port, headsBase, blocksBase uint64, numWatchIndices int, blockCapacity uint32) *Store {
	s := &Store{
		backing:         backing,
		headsBase:       headsBase,
		blocksBase:      blocksBase,
		numWatchIndices: numWatchIndices,
		blockCapacity:   blockCapacity,
		nextFreshBlock:  1, // block index 0 is reserved as nil
	}
	var zero [headStride]byte
	for i := 0; i < numWatchIndices; i++ {
		backing.SendUntimed(s.headAddr(i), zero[:])
	}
	return s
}

func (s *Store) headAddr(watchIndex int) uint64 {
	return s.headsBase + uint64(watchIndex)*headStride
}

func (s *Store) preNodeAddr(watchIndex, i int) uint64 {
	return s.headAddr(watchIndex) + uint64(i)*nodeStride
}

func (s *Store) firstBlockAddr(watchIndex int) uint64 {
	return s.headAddr(watchIndex) + PreWatch*nodeStride
}

func (s *Store) blockAddr(b uint32) uint64 {
	return s.blocksBase + uint64(b-1)*blockStride
}

func (s *Store) blockNodeAddr(b uint32, i int) uint64 {
	return s.blockAddr(b) + uint64(i)*nodeStride
}

func (s *Store) blockNextAddr(b uint32) uint64 {
	return s.blockAddr(b) + uint64(BlockSize)*nodeStride
}

func (s *Store) readNode(addr uint64) Node {
	buf := s.backing.ReadBytes(addr, nodeStride)
	return Node{
		Valid:   buf[0] != 0,
		Clause:  clause.Ref(binary.LittleEndian.Uint32(buf[1:5])),
		Blocker: lit.Lit(int32(binary.LittleEndian.Uint32(buf[5:9]))),
	}
}

func (s *Store) writeNode(addr uint64, n Node) {
	var buf [nodeStride]byte
	if n.Valid {
		buf[0] = 1
	}
	binary.LittleEndian.PutUint32(buf[1:5], uint32(n.Clause))
	binary.LittleEndian.PutUint32(buf[5:9], uint32(int32(n.Blocker)))
	s.backing.WriteBytes(addr, buf[:])
}

func (s *Store) readFirstBlock(watchIndex int) uint32 {
	return binary.LittleEndian.Uint32(s.backing.ReadBytes(s.firstBlockAddr(watchIndex), 4))
}

func (s *Store) writeFirstBlock(watchIndex int, b uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], b)
	s.backing.WriteBytes(s.firstBlockAddr(watchIndex), buf[:])
}

func (s *Store) readNext(b uint32) uint32 {
	return binary.LittleEndian.Uint32(s.backing.ReadBytes(s.blockNextAddr(b), 4))
}

func (s *Store) writeNext(b uint32, next uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], next)
	s.backing.WriteBytes(s.blockNextAddr(b), buf[:])
}

// allocBlock returns a fresh or recycled block, with every slot marked
// invalid and its next pointer cleared.
func (s *Store) allocBlock() uint32 {
	var b uint32
	if s.freeBlockHead != nilBlock {
		b = s.freeBlockHead
		s.freeBlockHead = s.readNext(b)
	} else {
		if s.nextFreshBlock > s.blockCapacity {
			panic("watch: block pool exhausted")
		}
		b = s.nextFreshBlock
		s.nextFreshBlock++
	}
	for i := 0; i < BlockSize; i++ {
		s.writeNode(s.blockNodeAddr(b, i), Node{})
	}
	s.writeNext(b, nilBlock)
	return b
}

// slotAddr resolves a Slot to its node address.
func (s *Store) slotAddr(slot Slot) uint64 {
	if slot.Block == nilBlock {
		panic("watch: slot has no watch index context; use preNodeAddr/blockNodeAddr directly")
	}
	return s.blockNodeAddr(slot.Block, slot.Index)
}

// Insert adds a watcher for ref (with the given blocking literal) into
// watchIndex's pre-watchers array if a slot is free, otherwise into the
// first open slot in its block chain, allocating a new block (prepended
// to the chain) if every existing block is full.
func (s *Store) Insert(watchIndex int, ref clause.Ref, blocker lit.Lit) {
	for i := 0; i < PreWatch; i++ {
		addr := s.preNodeAddr(watchIndex, i)
		if !s.readNode(addr).Valid {
			s.writeNode(addr, Node{Valid: true, Clause: ref, Blocker: blocker})
			return
		}
	}

	for b := s.readFirstBlock(watchIndex); b != nilBlock; b = s.readNext(b) {
		for i := 0; i < BlockSize; i++ {
			addr := s.blockNodeAddr(b, i)
			if !s.readNode(addr).Valid {
				s.writeNode(addr, Node{Valid: true, Clause: ref, Blocker: blocker})
				return
			}
		}
	}

	b := s.allocBlock()
	s.writeNode(s.blockNodeAddr(b, 0), Node{Valid: true, Clause: ref, Blocker: blocker})
	s.writeNext(b, s.readFirstBlock(watchIndex))
	s.writeFirstBlock(watchIndex, b)
}

// Remove invalidates the first watcher for ref found in watchIndex's
// pre-watchers array or block chain, reporting whether one was found.
// A block left with every slot invalid after the removal is detached
// from the chain and returned to the free list (spec.md's B1).
func (s *Store) Remove(watchIndex int, ref clause.Ref) bool {
	for i := 0; i < PreWatch; i++ {
		addr := s.preNodeAddr(watchIndex, i)
		n := s.readNode(addr)
		if n.Valid && n.Clause == ref {
			n.Valid = false
			s.writeNode(addr, n)
			return true
		}
	}

	prev := nilBlock
	for b := s.readFirstBlock(watchIndex); b != nilBlock; {
		next := s.readNext(b)
		for i := 0; i < BlockSize; i++ {
			addr := s.blockNodeAddr(b, i)
			n := s.readNode(addr)
			if n.Valid && n.Clause == ref {
				n.Valid = false
				s.writeNode(addr, n)
				if s.blockEmpty(b) {
					s.detachBlock(watchIndex, prev, b, next)
				}
				return true
			}
		}
		prev = b
		b = next
	}
	return false
}

func (s *Store) blockEmpty(b uint32) bool {
	for i := 0; i < BlockSize; i++ {
		if s.readNode(s.blockNodeAddr(b, i)).Valid {
			return false
		}
	}
	return true
}

func (s *Store) detachBlock(watchIndex int, prev, b, next uint32) {
	if prev == nilBlock {
		s.writeFirstBlock(watchIndex, next)
	} else {
		s.writeNext(prev, next)
	}
	s.writeNext(b, s.freeBlockHead)
	s.freeBlockHead = b
}

// First returns the slot of the first valid watcher for watchIndex and
// its node contents, or false if the list is empty. Slot.Block ==
// nilBlock identifies a pre-watchers slot.
func (s *Store) First(watchIndex int) (Slot, Node, bool) {
	return s.next(watchIndex, Slot{Block: nilBlock, Index: -1})
}

// Next advances past slot (as returned by First/Next) and returns the
// following valid watcher, walking one slot per call to preserve the
// one-request-per-node access pattern the async propagation workers
// rely on.
func (s *Store) Next(watchIndex int, slot Slot) (Slot, Node, bool) {
	return s.next(watchIndex, slot)
}

func (s *Store) next(watchIndex int, from Slot) (Slot, Node, bool) {
	startPre := 0
	if from.Block == nilBlock && from.Index >= 0 {
		startPre = from.Index + 1
	}
	if from.Block == nilBlock {
		for i := startPre; i < PreWatch; i++ {
			n := s.readNode(s.preNodeAddr(watchIndex, i))
			if n.Valid {
				return Slot{Block: nilBlock, Index: i}, n, true
			}
		}
		b := s.readFirstBlock(watchIndex)
		return s.firstInBlock(b, 0)
	}

	for i := from.Index + 1; i < BlockSize; i++ {
		n := s.readNode(s.blockNodeAddr(from.Block, i))
		if n.Valid {
			return Slot{Block: from.Block, Index: i}, n, true
		}
	}
	return s.firstInBlock(s.readNext(from.Block), 0)
}

func (s *Store) firstInBlock(b uint32, from int) (Slot, Node, bool) {
	for b != nilBlock {
		for i := from; i < BlockSize; i++ {
			n := s.readNode(s.blockNodeAddr(b, i))
			if n.Valid {
				return Slot{Block: b, Index: i}, n, true
			}
		}
		b = s.readNext(b)
		from = 0
	}
	return Slot{}, Node{}, false
}

// NodeAt re-reads slot's current contents.
func (s *Store) NodeAt(watchIndex int, slot Slot) Node {
	if slot.Block == nilBlock {
		return s.readNode(s.preNodeAddr(watchIndex, slot.Index))
	}
	return s.readNode(s.slotAddr(slot))
}

// SetBlocker overwrites slot's cached blocking literal in place,
// without disturbing its position in the chain.
func (s *Store) SetBlocker(watchIndex int, slot Slot, blocker lit.Lit) {
	n := s.NodeAt(watchIndex, slot)
	n.Blocker = blocker
	if slot.Block == nilBlock {
		s.writeNode(s.preNodeAddr(watchIndex, slot.Index), n)
		return
	}
	s.writeNode(s.slotAddr(slot), n)
}

// Invalidate clears slot in place (valid=0) and, for a block slot,
// detaches and frees the block if that was its last occupant.
func (s *Store) Invalidate(watchIndex int, slot Slot) {
	if slot.Block == nilBlock {
		n := s.readNode(s.preNodeAddr(watchIndex, slot.Index))
		n.Valid = false
		s.writeNode(s.preNodeAddr(watchIndex, slot.Index), n)
		return
	}
	n := s.readNode(s.slotAddr(slot))
	n.Valid = false
	s.writeNode(s.slotAddr(slot), n)
	if s.blockEmpty(slot.Block) {
		prev := nilBlock
		for b := s.readFirstBlock(watchIndex); b != nilBlock; b = s.readNext(b) {
			if b == slot.Block {
				s.detachBlock(watchIndex, prev, b, s.readNext(b))
				return
			}
			prev = b
		}
	}
}

// List materializes watchIndex's full watcher list, for tests and
// debug tooling; propagation itself should walk via First/Next to
// preserve the one-request-per-node access pattern.
func (s *Store) List(watchIndex int) []Node {
	var out []Node
	slot, n, ok := s.First(watchIndex)
	for ok {
		out = append(out, n)
		slot, n, ok = s.Next(watchIndex, slot)
	}
	return out
}

// BlockChainLength reports how many blocks are currently linked into
// watchIndex's chain, for tests verifying B1's detach-on-empty behavior.
func (s *Store) BlockChainLength(watchIndex int) int {
	n := 0
	for b := s.readFirstBlock(watchIndex); b != nilBlock; b = s.readNext(b) {
		n++
	}
	return n
}
