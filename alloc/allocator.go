// Package alloc implements the segregated-fit allocator that manages
// clause storage in external memory: boundary-tagged blocks, a fixed
// ladder of size classes, and split/coalesce on allocate/free. It is a
// direct port of the original's MemoryAllocator (memory_allocator.h/.cc)
// onto satx's byte-addressable backing store.
package alloc

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/satx/mem"
)

const (
	tagSize      = 4 // boundary tag (header or footer) width, bytes
	crefSize     = 4 // a clause reference, used for the free-list next/prev links
	litSize      = 4 // sizeof a packed literal
	minBlockSize = 2*tagSize + 2*crefSize
	numSizeClasses = 8
)

// sizeClasses are the minimum block size each class guarantees,
// matching the original's SIZE_CLASSES ladder of
// MIN_BLOCK_SIZE + {0,1,2,6,10,18,30,62} literals.
var sizeClasses = [numSizeClasses]uint32{
	minBlockSize + 0*litSize,
	minBlockSize + 1*litSize,
	minBlockSize + 2*litSize,
	minBlockSize + 6*litSize,
	minBlockSize + 10*litSize,
	minBlockSize + 18*litSize,
	minBlockSize + 30*litSize,
	minBlockSize + 62*litSize,
}

// Stats reports allocator occupancy and fragmentation, mirroring the
// original's updateFragStats bookkeeping.
type Stats struct {
	AllocatedBytes  uint64
	RequestedBytes  uint64
	FragRatio       float64
	PeakFragRatio   float64
	LiveAllocations int
}

// OutOfMemory is returned when no free block (and no coalescing) can
// satisfy a request within the allocator's region.
type OutOfMemory struct {
	Requested int
}

func (e *OutOfMemory) Error() string {
	return fmt.Sprintf("alloc: out of memory for request of %d bytes", e.Requested)
}

// Allocator manages one region of flat memory as boundary-tagged
// blocks on per-size-class free lists. live tracks the total size
// (header+payload+footer) of each live allocation, keyed by the
// payload address returned to callers, since Free only receives that
// address back.
type Allocator struct {
	backing *mem.Flat
	base    uint64
	limit   uint64

	freeHead [numSizeClasses]uint64 // 0 means "no block", base is never 0-offset addressable

	live  map[uint64]uint32 // payload addr -> total block size
	stats Stats
}

// New creates an allocator managing [base, base+size) of backing,
// initialized as a single free block.
func New(backing *mem.Flat, base uint64, size uint64) *Allocator {
	a := &Allocator{
		backing: backing,
		base:    base,
		limit:   base + size,
		live:    make(map[uint64]uint32),
	}
	a.writeFreeBlock(base, uint32(size), 0, 0)
	a.insertFreeBlock(a.classFor(uint32(size)), base)
	return a
}

func (a *Allocator) classFor(size uint32) int {
	for c := 0; c < numSizeClasses-1; c++ {
		if size <= sizeClasses[c] {
			return c
		}
	}
	return numSizeClasses - 1
}

// header/footer encoding: bit 31 is the allocated flag, bits [0,31) the
// block's total size.
func packTag(allocated bool, size uint32) uint32 {
	v := size &^ (1 << 31)
	if allocated {
		v |= 1 << 31
	}
	return v
}

func unpackTag(v uint32) (allocated bool, size uint32) {
	return v&(1<<31) != 0, v &^ (1 << 31)
}

func (a *Allocator) readTag(addr uint64) (allocated bool, size uint32) {
	return unpackTag(binary.LittleEndian.Uint32(a.backing.ReadBytes(addr, tagSize)))
}

func (a *Allocator) writeTag(addr uint64, allocated bool, size uint32) {
	var buf [tagSize]byte
	binary.LittleEndian.PutUint32(buf[:], packTag(allocated, size))
	a.backing.WriteBytes(addr, buf[:])
}

func (a *Allocator) footerAddr(blockAddr uint64, size uint32) uint64 {
	return blockAddr + uint64(size) - tagSize
}

func (a *Allocator) writeFreeBlock(addr uint64, size uint32, next, prev uint64) {
	a.writeTag(addr, false, size)
	a.writeTag(a.footerAddr(addr, size), false, size)
	var links [2 * crefSize]byte
	binary.LittleEndian.PutUint32(links[0:], uint32(next))
	binary.LittleEndian.PutUint32(links[crefSize:], uint32(prev))
	a.backing.WriteBytes(addr+tagSize, links[:])
}

func (a *Allocator) readLinks(addr uint64) (next, prev uint64) {
	buf := a.backing.ReadBytes(addr+tagSize, 2*crefSize)
	return uint64(binary.LittleEndian.Uint32(buf[0:])), uint64(binary.LittleEndian.Uint32(buf[crefSize:]))
}

func (a *Allocator) writeLinks(addr uint64, next, prev uint64) {
	var links [2 * crefSize]byte
	binary.LittleEndian.PutUint32(links[0:], uint32(next))
	binary.LittleEndian.PutUint32(links[crefSize:], uint32(prev))
	a.backing.WriteBytes(addr+tagSize, links[:])
}

// insertFreeBlock head-inserts addr into class's doubly-linked free
// list, matching the original's insertFreeBlock.
func (a *Allocator) insertFreeBlock(class int, addr uint64) {
	head := a.freeHead[class]
	a.writeLinks(addr, head, 0)
	if head != 0 {
		headNext, _ := a.readLinks(head)
		a.writeLinks(head, headNext, addr)
	}
	a.freeHead[class] = addr
}

// removeFreeBlock unlinks addr from class's free list, patching up
// whichever of its neighbors exist.
func (a *Allocator) removeFreeBlock(class int, addr uint64) {
	next, prev := a.readLinks(addr)
	if prev != 0 {
		_, prevPrev := a.readLinks(prev)
		a.writeLinks(prev, next, prevPrev)
	} else {
		a.freeHead[class] = next
	}
	if next != 0 {
		nextNext, _ := a.readLinks(next)
		a.writeLinks(next, nextNext, prev)
	}
}

// Allocate reserves a block able to hold reqSize payload bytes and
// returns the address of its payload (past the header). It returns
// *OutOfMemory if no block, after coalescing opportunities already
// taken during prior frees, can satisfy the request.
func (a *Allocator) Allocate(reqSize int) (uint64, error) {
	required := uint32(reqSize) + 2*tagSize
	if required < minBlockSize {
		required = minBlockSize
	}
	if required%4 != 0 {
		required += 4 - required%4
	}

	class := a.classFor(required)
	blockAddr, ok := a.findFit(class, required)
	if !ok {
		return 0, &OutOfMemory{Requested: reqSize}
	}

	_, blockSize := a.readTag(blockAddr)
	a.removeFreeBlock(a.classFor(blockSize), blockAddr)

	remainder := blockSize - required
	if remainder >= minBlockSize {
		a.writeTag(blockAddr, true, required)
		a.writeTag(a.footerAddr(blockAddr, required), true, required)
		remAddr := blockAddr + uint64(required)
		a.writeFreeBlock(remAddr, remainder, 0, 0)
		a.insertFreeBlock(a.classFor(remainder), remAddr)
	} else {
		a.writeTag(blockAddr, true, blockSize)
		a.writeTag(a.footerAddr(blockAddr, blockSize), true, blockSize)
		required = blockSize
	}

	payload := blockAddr + tagSize
	a.live[payload] = required
	a.stats.AllocatedBytes += uint64(required)
	a.stats.RequestedBytes += uint64(reqSize)
	a.stats.LiveAllocations++
	a.updateFragStats()
	return payload, nil
}

// findFit returns the head of the first free list, from required's
// own class upward (below the top class), whose head block is at
// least required bytes; otherwise it scans the catch-all top class for
// the first block whose size satisfies required (first-fit within that
// class).
func (a *Allocator) findFit(class int, required uint32) (uint64, bool) {
	for c := class; c < numSizeClasses-1; c++ {
		if a.freeHead[c] != 0 {
			if _, size := a.readTag(a.freeHead[c]); size >= required {
				return a.freeHead[c], true
			}
		}
	}
	for addr := a.freeHead[numSizeClasses-1]; addr != 0; {
		_, size := a.readTag(addr)
		if size >= required {
			return addr, true
		}
		next, _ := a.readLinks(addr)
		addr = next
	}
	return 0, false
}

// Free releases a previously allocated block, coalescing with an
// immediately adjacent free neighbor on either side before reinserting
// it into the appropriate free list.
func (a *Allocator) Free(payload uint64) {
	size, ok := a.live[payload]
	if !ok {
		return
	}
	delete(a.live, payload)
	a.stats.LiveAllocations--

	blockAddr := payload - tagSize
	a.stats.AllocatedBytes -= uint64(size)

	// Coalesce with next block.
	nextAddr := blockAddr + uint64(size)
	if nextAddr < a.limit {
		nextAlloc, nextSize := a.readTag(nextAddr)
		if !nextAlloc {
			a.removeFreeBlock(a.classFor(nextSize), nextAddr)
			size += nextSize
		}
	}

	// Coalesce with previous block, found via its footer just before
	// blockAddr.
	if blockAddr > a.base {
		prevFooter := blockAddr - tagSize
		prevAlloc, prevSize := a.readTag(prevFooter)
		if !prevAlloc {
			prevAddr := blockAddr - uint64(prevSize)
			a.removeFreeBlock(a.classFor(prevSize), prevAddr)
			blockAddr = prevAddr
			size += prevSize
		}
	}

	a.writeFreeBlock(blockAddr, size, 0, 0)
	a.insertFreeBlock(a.classFor(size), blockAddr)
	a.updateFragStats()
}

func (a *Allocator) updateFragStats() {
	if a.stats.AllocatedBytes == 0 {
		a.stats.FragRatio = 0
		return
	}
	ratio := float64(a.stats.AllocatedBytes-a.stats.RequestedBytes) / float64(a.stats.AllocatedBytes)
	a.stats.FragRatio = ratio
	if ratio > a.stats.PeakFragRatio {
		a.stats.PeakFragRatio = ratio
	}
}

// Stats returns a snapshot of current allocator occupancy.
func (a *Allocator) Stats() Stats { return a.stats }

// DebugCheck walks every live allocation and free-list entry,
// verifying header/footer boundary tags agree and that live and free
// bytes together account for the whole managed region.
func (a *Allocator) DebugCheck() error {
	for payload, size := range a.live {
		blockAddr := payload - tagSize
		allocH, sizeH := a.readTag(blockAddr)
		if !allocH || sizeH != size {
			return fmt.Errorf("alloc: live block at %d has inconsistent header (allocated=%v size=%d want %d)", blockAddr, allocH, sizeH, size)
		}
		allocF, sizeF := a.readTag(a.footerAddr(blockAddr, size))
		if !allocF || sizeF != size {
			return fmt.Errorf("alloc: live block at %d has inconsistent footer", blockAddr)
		}
	}

	var freeBytes uint64
	for class, head := range a.freeHead {
		for addr := head; addr != 0; {
			allocated, size := a.readTag(addr)
			if allocated {
				return fmt.Errorf("alloc: free list class %d contains allocated block at %d", class, addr)
			}
			if a.classFor(size) != class {
				return fmt.Errorf("alloc: block at %d (size %d) filed under wrong class %d", addr, size, class)
			}
			freeBytes += uint64(size)
			next, _ := a.readLinks(addr)
			addr = next
		}
	}

	if a.stats.AllocatedBytes+freeBytes != a.limit-a.base {
		return fmt.Errorf("alloc: live+free bytes %d does not cover managed region %d", a.stats.AllocatedBytes+freeBytes, a.limit-a.base)
	}
	return nil
}
