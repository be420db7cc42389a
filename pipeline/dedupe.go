package pipeline

import "time"

// dedupeWindow suppresses re-delivery of an identical event key within
// window of its last occurrence, SPEC_FULL.md §C.2. It is a small
// fixed-capacity LRU, not an unbounded map, so a long-running pipeline
// facing many distinct transmitters never grows without bound.
type dedupeWindow struct {
	window time.Duration
	cap    int
	seen   map[string]time.Time
	order  []string // recency order, least recently seen first, for eviction
}

const dedupeCapacity = 256

func newDedupeWindow(window time.Duration) *dedupeWindow {
	return &dedupeWindow{
		window: window,
		cap:    dedupeCapacity,
		seen:   make(map[string]time.Time),
	}
}

// seenRecently reports whether key was already seen within window, and
// records the current occurrence either way.
func (d *dedupeWindow) seenRecently(key string) bool {
	now := time.Now()
	if last, ok := d.seen[key]; ok {
		for i, k := range d.order {
			if k == key {
				d.order = append(append(d.order[:i], d.order[i+1:]...), key)
				break
			}
		}
		if now.Sub(last) < d.window {
			d.seen[key] = now
			return true
		}
	} else {
		d.order = append(d.order, key)
		if len(d.order) > d.cap {
			evict := d.order[0]
			d.order = d.order[1:]
			delete(d.seen, evict)
		}
	}
	d.seen[key] = now
	return false
}
