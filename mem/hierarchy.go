package mem

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// LineConfig holds the parameters of a single cache level sitting in
// front of Flat memory. It plays the role of spec.md §1's "cache
// simulation listener": the core never sees it directly, but every
// Port access is timed through it.
type LineConfig struct {
	// Size is the cache capacity in bytes.
	Size int
	// Associativity is the number of ways per set.
	Associativity int
	// LineSize is the cache line size in bytes; this is also the
	// "cache line size probed at setup" referenced by spec.md §6.
	LineSize int
	// HitLatency is the access latency, in cycles, on a hit.
	HitLatency uint64
	// MissLatency is the access latency, in cycles, on a miss
	// (includes the cost of fetching from Flat backing memory).
	MissLatency uint64
}

// DefaultLineConfig returns a modest single-level cache in front of
// the solver's external memory: small enough that propagation and
// allocator traffic exercise both hits and misses in ordinary runs.
func DefaultLineConfig() LineConfig {
	return LineConfig{
		Size:          64 * 1024,
		Associativity: 8,
		LineSize:      64,
		HitLatency:    4,
		MissLatency:   80,
	}
}

// AccessResult reports the outcome of a single Hierarchy access.
type AccessResult struct {
	Hit         bool
	Latency     uint64
	Data        []byte
	Evicted     bool
	EvictedAddr uint64
}

// HierarchyStats accumulates access counters for the stats package to
// fold into the global histogram.
type HierarchyStats struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// storeForwardLatency is the extra latency charged when a load reads
// an address that was written by the immediately preceding store,
// modeling the cost of checking the store queue before the cache.
const storeForwardLatency uint64 = 1

// Hierarchy is a single-level, Akita-directory-backed cache sitting in
// front of a Flat backing store. It is the concrete collaborator
// behind the "external memory subsystem" non-goal named in spec.md §1:
// the solver core only ever calls Port, which routes through Hierarchy
// for timing and Flat for storage.
type Hierarchy struct {
	config    LineConfig
	directory *akitacache.DirectoryImpl
	dataStore [][]byte
	stats     HierarchyStats
	backing   *Flat

	recentStoreAddr  uint64
	recentStoreValid bool
}

// NewHierarchy builds a cache hierarchy of the given configuration
// backed by flat memory.
func NewHierarchy(config LineConfig, backing *Flat) *Hierarchy {
	numSets := config.Size / (config.Associativity * config.LineSize)
	if numSets < 1 {
		numSets = 1
	}
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.LineSize)
	}

	return &Hierarchy{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.LineSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}
}

// Config returns the hierarchy's configuration.
func (h *Hierarchy) Config() LineConfig { return h.config }

// Stats returns a snapshot of access counters.
func (h *Hierarchy) Stats() HierarchyStats { return h.stats }

func (h *Hierarchy) blockIndex(block *akitacache.Block) int {
	return block.SetID*h.config.Associativity + block.WayID
}

// Read performs a timed read of size bytes at addr. size must not
// exceed the line size (callers slice bursts with SliceBurst first).
func (h *Hierarchy) Read(addr uint64, size int) AccessResult {
	h.stats.Reads++

	lineAddr := (addr / uint64(h.config.LineSize)) * uint64(h.config.LineSize)
	block := h.directory.Lookup(0, lineAddr)

	if block != nil && block.IsValid {
		h.stats.Hits++
		h.directory.Visit(block)

		offset := int(addr - lineAddr)
		line := h.dataStore[h.blockIndex(block)]
		data := make([]byte, size)
		copy(data, line[offset:offset+size])

		latency := h.config.HitLatency
		if h.recentStoreValid && h.recentStoreAddr == addr {
			latency += storeForwardLatency
			h.recentStoreValid = false
		}

		return AccessResult{Hit: true, Latency: latency, Data: data}
	}

	h.stats.Misses++
	return h.handleMiss(addr, size, nil)
}

// Write performs a timed write-allocate write of data at addr.
func (h *Hierarchy) Write(addr uint64, data []byte) AccessResult {
	h.stats.Writes++
	h.recentStoreAddr = addr
	h.recentStoreValid = true

	lineAddr := (addr / uint64(h.config.LineSize)) * uint64(h.config.LineSize)
	block := h.directory.Lookup(0, lineAddr)

	if block != nil && block.IsValid {
		h.stats.Hits++
		h.directory.Visit(block)

		offset := int(addr - lineAddr)
		line := h.dataStore[h.blockIndex(block)]
		copy(line[offset:offset+len(data)], data)
		block.IsDirty = true

		return AccessResult{Hit: true, Latency: h.config.HitLatency}
	}

	h.stats.Misses++
	return h.handleMiss(addr, len(data), data)
}

// handleMiss fetches the containing line from backing memory,
// possibly evicting and writing back a dirty victim first. writeData
// nil means this miss originated from a read.
func (h *Hierarchy) handleMiss(addr uint64, size int, writeData []byte) AccessResult {
	result := AccessResult{Hit: false, Latency: h.config.MissLatency}

	lineAddr := (addr / uint64(h.config.LineSize)) * uint64(h.config.LineSize)
	victim := h.directory.FindVictim(lineAddr)
	if victim == nil {
		return result
	}

	victimData := h.dataStore[h.blockIndex(victim)]

	if victim.IsValid {
		h.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag

		if victim.IsDirty {
			h.stats.Writebacks++
			h.backing.WriteBytes(victim.Tag, victimData)
		}
	}

	fresh := h.backing.ReadBytes(lineAddr, h.config.LineSize)
	copy(victimData, fresh)

	victim.Tag = lineAddr
	victim.IsValid = true
	victim.IsDirty = false

	offset := int(addr - lineAddr)
	if writeData != nil {
		copy(victimData[offset:offset+len(writeData)], writeData)
		victim.IsDirty = true
	} else {
		data := make([]byte, size)
		copy(data, victimData[offset:offset+size])
		result.Data = data
	}

	h.directory.Visit(victim)
	return result
}

// Flush writes back every dirty line and invalidates the directory.
func (h *Hierarchy) Flush() {
	for _, set := range h.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				h.backing.WriteBytes(block.Tag, h.dataStore[h.blockIndex(block)])
				h.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates the directory without writeback and clears stats.
func (h *Hierarchy) Reset() {
	h.directory.Reset()
	h.stats = HierarchyStats{}
	h.recentStoreValid = false
}
