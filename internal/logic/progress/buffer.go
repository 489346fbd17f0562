package progress

import (
	"sort"
	"sync"
)

// slotBuffer 暂存待落库的 slot 记录，同一 slot 只保留最后一次状态
type slotBuffer struct {
	mu     sync.Mutex
	buffer map[uint64]*SlotRecord
}

func newSlotBuffer() *slotBuffer {
	return &slotBuffer{
		buffer: make(map[uint64]*SlotRecord),
	}
}

func (b *slotBuffer) Add(record *SlotRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer[record.Slot] = record
}

// Flush 取出全部记录并按 slot 升序返回
func (b *slotBuffer) Flush() []*SlotRecord {
	b.mu.Lock()
	flushed := b.buffer
	b.buffer = make(map[uint64]*SlotRecord)
	b.mu.Unlock()

	list := make([]*SlotRecord, 0, len(flushed))
	for _, r := range flushed {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Slot < list[j].Slot })
	return list
}

// Restore 将写库失败的记录放回缓冲区，已有更新状态的 slot 不覆盖
func (b *slotBuffer) Restore(records []*SlotRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range records {
		if _, ok := b.buffer[r.Slot]; !ok {
			b.buffer[r.Slot] = r
		}
	}
}

func (b *slotBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}
