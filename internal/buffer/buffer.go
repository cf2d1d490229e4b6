// Package buffer implements the sort & dedupe output buffer that
// collects resolved, substituted reminder occurrences and emits them
// in a stable total order.
package buffer

import (
	"fmt"
	"sort"
)

// Direction is a sort-key direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
	None
)

// Entry is one queued, already-substituted reminder occurrence.
type Entry struct {
	Date     int32 // DSE
	Time     int   // minutes past midnight, or -1 if untimed
	Priority int   // 0..9999, higher is more urgent
	Seq      int   // script order, the final tiebreaker
	Body     string
	File     string
	Line     int

	// Payload carries the driver's richer occurrence record (tags,
	// INFO map, output type) through the sort without this package
	// needing to know its shape.
	Payload any
}

// Options configures the comparator's key directions and whether
// untimed entries sort before timed ones on a date tie.
type Options struct {
	DateDir      Direction
	TimeDir      Direction
	PriorityDir  Direction
	UntimedFirst bool
}

// DefaultOptions is the default listing order: ascending date,
// untimed before timed, ascending time, higher priority first, script
// order last.
var DefaultOptions = Options{
	DateDir:      Ascending,
	TimeDir:      Ascending,
	PriorityDir:  Descending,
	UntimedFirst: true,
}

// Buffer accumulates entries and a content-keyed dedupe set.
type Buffer struct {
	opts    Options
	entries []Entry
	seen    map[string]bool
}

func New(opts Options) *Buffer {
	return &Buffer{opts: opts, seen: make(map[string]bool)}
}

// contentKey is the dedupe key: (date,time,body).
func contentKey(e Entry) string {
	return fmt.Sprintf("%d|%d|%s", e.Date, e.Time, e.Body)
}

// Add appends e unless its content key was already seen, returning
// whether it was actually added (false on a dropped duplicate).
func (b *Buffer) Add(e Entry) bool {
	k := contentKey(e)
	if b.seen[k] {
		return false
	}
	b.seen[k] = true
	e.Seq = len(b.entries)
	b.entries = append(b.entries, e)
	return true
}

// Len reports the number of distinct queued entries.
func (b *Buffer) Len() int { return len(b.entries) }

func cmpInt(a, b int, dir Direction) int {
	switch {
	case a < b:
		if dir == Descending {
			return 1
		}
		return -1
	case a > b:
		if dir == Descending {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// Sorted returns the buffered entries ordered by (trigdate, trigtime,
// priority) with the configured per-key direction and untimed-first
// axis, falling back to script order (Seq) for a fully stable total
// order.
func (b *Buffer) Sorted() []Entry {
	out := append([]Entry(nil), b.entries...)
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j], b.opts)
	})
	return out
}

func less(a, c Entry, opts Options) bool {
	if r := cmpInt(int(a.Date), int(c.Date), opts.DateDir); r != 0 {
		return r < 0
	}
	if opts.UntimedFirst {
		au, cu := a.Time < 0, c.Time < 0
		if au != cu {
			return au
		}
	}
	if r := cmpInt(a.Time, c.Time, opts.TimeDir); r != 0 {
		return r < 0
	}
	if r := cmpInt(a.Priority, c.Priority, opts.PriorityDir); r != 0 {
		return r < 0
	}
	return a.Seq < c.Seq
}
