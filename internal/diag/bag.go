package diag

import (
	"sort"

	"fortio.org/safecast"
)

type Bag struct {
	items   []*Diagnostic
	max     uint16
	dropped int
}

func NewBag(max int) *Bag {
	capacity, err := safecast.Conv[uint16](max)
	if err != nil || max <= 0 {
		capacity = ^uint16(0)
	}
	return &Bag{
		items: make([]*Diagnostic, 0, min(int(capacity), 64)),
		max:   capacity,
	}
}

// Add добавляет диагностику, учитывая лимит.
// Возвращает false, если диагностика не добавлена (достигнут лимит);
// такие диагностики учитываются в Dropped.
func (b *Bag) Add(d *Diagnostic) bool {
	if d == nil {
		return false
	}
	if len(b.items) >= int(b.max) {
		b.dropped++
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Cap() uint16 {
	return b.max
}

// Dropped reports how many diagnostics were rejected by the cap.
func (b *Bag) Dropped() int {
	return b.dropped
}

// HasErrors возвращает true, если есть хотя бы одна диагностика с Severity >= Error
func (b *Bag) HasErrors() bool {
	return b.ErrorCount() > 0
}

func (b *Bag) ErrorCount() int {
	n := 0
	for _, d := range b.items {
		if d.Severity >= SevError {
			n++
		}
	}
	return n
}

// HasWarnings возвращает true, если есть хотя бы одна диагностика с Severity >= Warning
func (b *Bag) HasWarnings() bool {
	for _, d := range b.items {
		if d.Severity >= SevWarning {
			return true
		}
	}
	return false
}

// длина
func (b *Bag) Len() int {
	return len(b.items)
}

// Items возвращает read-only slice диагностик.
// ВАЖНО: не модифицируйте возвращаемый срез! (он указывает на внутренний массив Bag)
func (b *Bag) Items() []*Diagnostic {
	return b.items
}

// Merge объединяет диагностики из другого Bag.
// Увеличивает max, если нужно вместить все элементы.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	newTotal := len(b.items) + len(other.items)
	if newTotal > int(b.max) {
		if n, err := safecast.Conv[uint16](newTotal); err == nil {
			b.max = n
		} else {
			b.max = ^uint16(0)
		}
	}
	for _, d := range other.items {
		b.Add(d)
	}
	b.dropped += other.dropped
}

// Sort сортирует диагностики по: file, start, end, severity (desc), code (asc)
// для стабильного и детерминированного порядка вывода.
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.Primary != dj.Primary {
			return di.Primary.Before(dj.Primary)
		}
		// затем по severity (по убыванию: Error > Warning > Info)
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		if di.Code != dj.Code {
			return di.Code < dj.Code
		}
		return di.Message < dj.Message
	})
}

// Dedup удаляет повторы с тем же Key, сохраняя первое вхождение.
func (b *Bag) Dedup() {
	seen := make(map[Key]struct{}, len(b.items))
	out := b.items[:0]
	for _, d := range b.items {
		if _, dup := seen[d.Key()]; dup {
			continue
		}
		seen[d.Key()] = struct{}{}
		out = append(out, d)
	}
	b.items = out
}

// Filter keeps diagnostics for which keep returns true.
func (b *Bag) Filter(keep func(*Diagnostic) bool) {
	out := b.items[:0]
	for _, d := range b.items {
		if keep(d) {
			out = append(out, d)
		}
	}
	b.items = out
}
