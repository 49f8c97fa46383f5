package mem

// AddressMap assigns each external structure its own bit range so a
// cache profiler (external collaborator) can classify accesses by
// prefix alone. Defaults match spec.md §6.
type AddressMap struct {
	Heap            uint64
	Indices         uint64
	Variables       uint64
	WatchHeads      uint64
	WatcherNodes    uint64
	ClauseMetadata  uint64
	ClauseLiterals  uint64
	VariableActivity uint64
}

// DefaultAddressMap returns the spec's default address assignment.
func DefaultAddressMap() AddressMap {
	return AddressMap{
		Heap:             0x00000000,
		Indices:          0x10000000,
		Variables:        0x20000000,
		WatchHeads:       0x30000000,
		WatcherNodes:     0x40000000,
		ClauseMetadata:   0x50000000,
		ClauseLiterals:   0x60000000,
		VariableActivity: 0x70000000,
	}
}
