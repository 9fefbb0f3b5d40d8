// 文件: pkg/marketdata/memory_repo.go
// 进程内快照存储，单机运行和测试用

package marketdata

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ SnapshotRepository = (*MemorySnapshotRepository)(nil)

type MemorySnapshotRepository struct {
	mu       sync.RWMutex
	bySymbol map[string][]*Snapshot // 按 AsOf 正序
	nextID   uint
}

func NewMemorySnapshotRepository() *MemorySnapshotRepository {
	return &MemorySnapshotRepository{bySymbol: make(map[string][]*Snapshot)}
}

func (r *MemorySnapshotRepository) Save(_ context.Context, snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	if snap.AsOf.IsZero() {
		snap.AsOf = time.Now()
	}
	snap.CreatedAt = time.Now().UnixMilli()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	snap.ID = r.nextID
	cp := *snap
	list := append(r.bySymbol[snap.Symbol], &cp)
	sort.SliceStable(list, func(i, j int) bool { return list[i].AsOf.Before(list[j].AsOf) })
	r.bySymbol[snap.Symbol] = list
	return nil
}

func (r *MemorySnapshotRepository) Latest(_ context.Context, symbol string) (*Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.bySymbol[symbol]
	if len(list) == 0 {
		return nil, ErrSnapshotNotFound
	}
	cp := *list[len(list)-1]
	return &cp, nil
}

func (r *MemorySnapshotRepository) History(_ context.Context, symbol string, limit int) ([]*Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.bySymbol[symbol]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]*Snapshot, 0, limit)
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *list[i]
		out = append(out, &cp)
	}
	return out, nil
}
