package vault

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// nullOffset is the sentinel value for "no block". Offset 0 is never a
	// valid block address since the heap header itself occupies it.
	nullOffset = 0

	// heapHeaderSize is the size in bytes of the header at file offset 0.
	heapHeaderSize = 16 // FreeHead uint64 + UsedHead uint64

	// blockHeaderSize is the size in bytes of the header preceding every block's payload.
	blockHeaderSize = 24 // Prev uint64 + Next uint64 + DataSize uint64

	// splitSlack is the minimum payload size (beyond what was requested) a
	// free block must have left over before allocate bothers splitting it.
	splitSlack = 100
)

// blockHeader is the intrusive doubly linked list node prefixing every
// block's payload, whether the block currently lives on the free list or
// the used list.
type blockHeader struct {
	Prev     uint64
	Next     uint64
	DataSize uint64
}

// persistentHeap is a first-fit allocator over a single memory-mapped file.
// Free and used blocks are each tracked with an intrusive doubly linked
// list; offsets into the file stand in for pointers since the mapping can
// be re-established at a different address on every process run.
//
// All mutating operations are serialized by mu. Enumeration also takes mu
// since it is only ever used during recovery and stats collection, never
// on a hot read path.
type persistentHeap struct {
	mu   sync.Mutex
	file *os.File
	data []byte
	size int64
}

// openPersistentHeap opens the heap file at path, creating and
// initializing it if it does not already exist (or is empty). An existing
// non-empty file is opened as-is; its own size wins over the requested
// size.
func openPersistentHeap(path string, size int64) (*persistentHeap, error) {
	fresh := false

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("vault: create heap file %q: %w", path, err)
		}
		file, err = os.OpenFile(path, os.O_RDWR, 0o644)
		if err != nil {
			return nil, fmt.Errorf("vault: open heap file %q: %w", path, err)
		}
	} else {
		fresh = true
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("vault: stat heap file %q: %w", path, err)
	}

	fileSize := info.Size()
	if fileSize == 0 {
		fresh = true
		fileSize = size
	}

	if fileSize <= heapHeaderSize+blockHeaderSize {
		file.Close()
		return nil, fmt.Errorf("vault: heap size %d too small, need more than %d bytes", fileSize, heapHeaderSize+blockHeaderSize)
	}

	if fresh {
		if err := file.Truncate(fileSize); err != nil {
			file.Close()
			return nil, fmt.Errorf("vault: truncate heap file %q to %d bytes: %w", path, fileSize, err)
		}
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(fileSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("vault: mmap heap file %q: %w", path, err)
	}

	h := &persistentHeap{file: file, data: data, size: fileSize}

	if fresh {
		h.initFresh()
	} else if err := h.validateHeader(); err != nil {
		unix.Munmap(data)
		file.Close()
		return nil, err
	}

	return h, nil
}

// initFresh writes a header and a single free block spanning the whole
// file to a newly truncated heap file.
func (h *persistentHeap) initFresh() {
	h.setHeader(heapHeaderSize, nullOffset)
	payloadSize := uint64(h.size) - heapHeaderSize - blockHeaderSize
	h.setBlock(heapHeaderSize, blockHeader{Prev: nullOffset, Next: nullOffset, DataSize: payloadSize})
}

// validateHeader sanity-checks an existing heap file's header before it is
// trusted. Failure here means the file was truncated or corrupted outside
// of this package and is a fatal setup error.
func (h *persistentHeap) validateHeader() error {
	freeHead, usedHead := h.header()

	valid := func(offset uint64) bool {
		return offset == nullOffset || (offset >= heapHeaderSize && offset < uint64(h.size))
	}

	if !valid(freeHead) || !valid(usedHead) {
		return fmt.Errorf("vault: corrupt heap header: free_head=%d used_head=%d file_size=%d", freeHead, usedHead, h.size)
	}

	return nil
}

// close unmaps and closes the underlying file. It does not fsync; durable
// ordering of writes is left entirely to the operating system.
func (h *persistentHeap) close() error {
	if err := unix.Munmap(h.data); err != nil {
		return fmt.Errorf("vault: munmap heap file: %w", err)
	}
	if err := h.file.Close(); err != nil {
		return fmt.Errorf("vault: close heap file: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Raw header and block access
// --------------------------------------------------------------------------

func (h *persistentHeap) header() (freeHead, usedHead uint64) {
	return binary.LittleEndian.Uint64(h.data[0:8]), binary.LittleEndian.Uint64(h.data[8:16])
}

func (h *persistentHeap) setHeader(freeHead, usedHead uint64) {
	binary.LittleEndian.PutUint64(h.data[0:8], freeHead)
	binary.LittleEndian.PutUint64(h.data[8:16], usedHead)
}

// block reads the block header at the given file offset (the header's own
// offset, not the payload's).
func (h *persistentHeap) block(offset uint64) blockHeader {
	return blockHeader{
		Prev:     binary.LittleEndian.Uint64(h.data[offset : offset+8]),
		Next:     binary.LittleEndian.Uint64(h.data[offset+8 : offset+16]),
		DataSize: binary.LittleEndian.Uint64(h.data[offset+16 : offset+24]),
	}
}

func (h *persistentHeap) setBlock(offset uint64, b blockHeader) {
	binary.LittleEndian.PutUint64(h.data[offset:offset+8], b.Prev)
	binary.LittleEndian.PutUint64(h.data[offset+8:offset+16], b.Next)
	binary.LittleEndian.PutUint64(h.data[offset+16:offset+24], b.DataSize)
}

// payload returns the byte slice backing a block's data, given the
// block's payload offset (offset+blockHeaderSize from its header).
func (h *persistentHeap) payload(payloadOffset, dataSize uint64) []byte {
	return h.data[payloadOffset : payloadOffset+dataSize]
}

// --------------------------------------------------------------------------
// Used list
// --------------------------------------------------------------------------

func (h *persistentHeap) unlinkUsed(offset uint64) {
	b := h.block(offset)
	freeHead, usedHead := h.header()

	if b.Prev != nullOffset {
		p := h.block(b.Prev)
		p.Next = b.Next
		h.setBlock(b.Prev, p)
	} else {
		usedHead = b.Next
	}

	if b.Next != nullOffset {
		n := h.block(b.Next)
		n.Prev = b.Prev
		h.setBlock(b.Next, n)
	}

	h.setHeader(freeHead, usedHead)
}

// pushUsed inserts offset at the head of the used list (LIFO order).
func (h *persistentHeap) pushUsed(offset uint64) {
	freeHead, usedHead := h.header()

	b := h.block(offset)
	b.Prev = nullOffset
	b.Next = usedHead
	h.setBlock(offset, b)

	if usedHead != nullOffset {
		old := h.block(usedHead)
		old.Prev = offset
		h.setBlock(usedHead, old)
	}

	h.setHeader(freeHead, offset)
}

// --------------------------------------------------------------------------
// Free list
// --------------------------------------------------------------------------

func (h *persistentHeap) unlinkFree(offset uint64) {
	b := h.block(offset)
	freeHead, usedHead := h.header()

	if b.Prev != nullOffset {
		p := h.block(b.Prev)
		p.Next = b.Next
		h.setBlock(b.Prev, p)
	} else {
		freeHead = b.Next
	}

	if b.Next != nullOffset {
		n := h.block(b.Next)
		n.Prev = b.Prev
		h.setBlock(b.Next, n)
	}

	h.setHeader(freeHead, usedHead)
}

// insertFreeSorted inserts offset into the free list, keeping the list in
// strictly ascending offset order. This is what makes contiguity checks
// against immediate list neighbors sufficient for coalescing.
func (h *persistentHeap) insertFreeSorted(offset uint64) {
	freeHead, usedHead := h.header()

	var prevOffset uint64 = nullOffset
	cur := freeHead
	for cur != nullOffset && cur < offset {
		prevOffset = cur
		cur = h.block(cur).Next
	}

	b := h.block(offset)
	b.Prev = prevOffset
	b.Next = cur
	h.setBlock(offset, b)

	if cur != nullOffset {
		n := h.block(cur)
		n.Prev = offset
		h.setBlock(cur, n)
	}

	if prevOffset != nullOffset {
		p := h.block(prevOffset)
		p.Next = offset
		h.setBlock(prevOffset, p)
	} else {
		freeHead = offset
	}

	h.setHeader(freeHead, usedHead)
}

// --------------------------------------------------------------------------
// Allocation
// --------------------------------------------------------------------------

// allocate finds the first free block that fits n bytes, splits off the
// remainder if it is large enough to be useful on its own, and moves the
// chosen block to the head of the used list. The returned offset is a
// payload offset, ready to be sliced with payload(). ok is false only when
// no free block was large enough.
func (h *persistentHeap) allocate(n uint64) (uint64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	freeHead, _ := h.header()

	offset := freeHead
	for offset != nullOffset {
		b := h.block(offset)
		if b.DataSize >= n {
			break
		}
		offset = b.Next
	}
	if offset == nullOffset {
		return 0, false
	}

	h.unlinkFree(offset)
	b := h.block(offset)

	if b.DataSize >= n+blockHeaderSize+splitSlack {
		tailOffset := offset + blockHeaderSize + n
		tailSize := b.DataSize - n - blockHeaderSize
		h.setBlock(tailOffset, blockHeader{DataSize: tailSize})
		h.insertFreeSorted(tailOffset)

		b.DataSize = n
		h.setBlock(offset, b)
	}

	h.pushUsed(offset)

	return offset + blockHeaderSize, true
}

// deallocate returns the block backing payloadOffset to the free list,
// coalescing it with any contiguous free neighbors.
func (h *persistentHeap) deallocate(payloadOffset uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	offset := payloadOffset - blockHeaderSize
	h.unlinkUsed(offset)
	h.insertFreeSorted(offset)
	h.coalesce(offset)
}

// coalesce merges the free block at offset with its immediate free-list
// predecessor and/or successor, if they are contiguous in the file.
func (h *persistentHeap) coalesce(offset uint64) {
	b := h.block(offset)
	prevOffset := b.Prev
	nextOffset := b.Next

	prevContig := prevOffset != nullOffset && prevOffset+blockHeaderSize+h.block(prevOffset).DataSize == offset
	nextContig := nextOffset != nullOffset && offset+blockHeaderSize+b.DataSize == nextOffset

	if prevContig && nextContig {
		n := h.block(nextOffset)
		h.unlinkFree(nextOffset)
		h.unlinkFree(offset)
		p := h.block(prevOffset)
		p.DataSize += 2*blockHeaderSize + b.DataSize + n.DataSize
		h.setBlock(prevOffset, p)
		return
	}

	if prevContig {
		h.unlinkFree(offset)
		p := h.block(prevOffset)
		p.DataSize += blockHeaderSize + b.DataSize
		h.setBlock(prevOffset, p)
		return
	}

	if nextContig {
		n := h.block(nextOffset)
		h.unlinkFree(nextOffset)
		b = h.block(offset) // unlinking next may have rewritten this block's Next pointer
		b.DataSize += blockHeaderSize + n.DataSize
		h.setBlock(offset, b)
		return
	}
}

// --------------------------------------------------------------------------
// Enumeration and stats
// --------------------------------------------------------------------------

// rangeUsed calls fn once for every block currently on the used list, in
// list order, passing its payload offset and data size. Iteration stops
// early if fn returns false.
func (h *persistentHeap) rangeUsed(fn func(payloadOffset, dataSize uint64) bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, usedHead := h.header()
	offset := usedHead
	for offset != nullOffset {
		b := h.block(offset)
		if !fn(offset+blockHeaderSize, b.DataSize) {
			return
		}
		offset = b.Next
	}
}

// stats reports the current size and block-count split between the used
// and free lists, for GetInfo.
func (h *persistentHeap) stats() (usedBytes, freeBytes uint64, usedBlocks, freeBlocks int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	freeHead, usedHead := h.header()

	for o := usedHead; o != nullOffset; {
		b := h.block(o)
		usedBytes += b.DataSize
		usedBlocks++
		o = b.Next
	}

	for o := freeHead; o != nullOffset; {
		b := h.block(o)
		freeBytes += b.DataSize
		freeBlocks++
		o = b.Next
	}

	return
}
