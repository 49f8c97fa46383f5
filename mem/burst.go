package mem

// Chunk is one cache-line-aligned (or smaller) slice of a burst
// request: byte range [Addr, Addr+Size) mapping to data[Offset:Offset+Size].
type Chunk struct {
	Addr   uint64
	Offset int
	Size   int
}

// SliceBurst splits [startAddr, startAddr+totalSize) into chunks that
// never cross a line-size boundary, further aligning each chunk to a
// multiple of elemSize where the line boundary allows it. When an
// element is unavoidably split across two lines (elemSize does not
// divide lineSize, or the start address is misaligned), the chunk
// still ends at the line boundary, so the straddling element's bytes
// are split across two chunks (Straddles reports whether a given
// access crosses a line).
func SliceBurst(startAddr uint64, totalSize int, lineSize int, elemSize int) []Chunk {
	if lineSize <= 0 {
		return []Chunk{{Addr: startAddr, Offset: 0, Size: totalSize}}
	}

	var chunks []Chunk
	remaining := totalSize
	addr := startAddr
	offset := 0

	for remaining > 0 {
		lineEnd := (addr/uint64(lineSize) + 1) * uint64(lineSize)
		room := int(lineEnd - addr)
		size := room
		if size > remaining {
			size = remaining
		}

		// Align down to a multiple of elemSize when it fits without
		// shrinking the chunk to nothing — avoids splitting elements
		// that happen to fit entirely within the remaining room.
		if elemSize > 1 && size > elemSize {
			size -= size % elemSize
		}

		chunks = append(chunks, Chunk{Addr: addr, Offset: offset, Size: size})
		addr += uint64(size)
		offset += size
		remaining -= size
	}

	return chunks
}

// Straddles reports whether an access of size starting at addr crosses
// a lineSize boundary.
func Straddles(addr uint64, size int, lineSize int) bool {
	if lineSize <= 0 || size <= 0 {
		return false
	}
	start := addr / uint64(lineSize)
	end := (addr + uint64(size) - 1) / uint64(lineSize)
	return start != end
}
