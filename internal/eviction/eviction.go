// Package eviction holds the key-ordering policies the cache consults when it
// is over capacity. Policies are not safe for concurrent use; the cache calls
// them under its own lock.
package eviction

import "container/list"

// Policy tracks keys and names the next one to drop.
type Policy interface {
	// Added is called once when a key enters the cache.
	Added(key string)
	// Touched is called when an existing key is read or replaced.
	Touched(key string)
	// Remove forgets a key dropped for any reason other than Victim.
	Remove(key string)
	// Victim removes and returns the key to evict; ok=false when empty.
	Victim() (key string, ok bool)
	Len() int
	Reset()
}

// NewFIFO returns an insertion-order policy: the oldest-inserted key goes first
// and reads or replacements do not change a key's position.
func NewFIFO() Policy { return &ordered{idx: make(map[string]*list.Element), l: list.New()} }

// NewLRU returns an access-order policy: the least recently touched key goes first.
func NewLRU() Policy {
	return &ordered{idx: make(map[string]*list.Element), l: list.New(), moveOnTouch: true}
}

// ordered keeps keys in a list, front = next victim.
type ordered struct {
	idx         map[string]*list.Element
	l           *list.List
	moveOnTouch bool
}

func (o *ordered) Added(k string) {
	if e, ok := o.idx[k]; ok {
		// already tracked: treat as a touch
		if o.moveOnTouch {
			o.l.MoveToBack(e)
		}
		return
	}
	o.idx[k] = o.l.PushBack(k)
}

func (o *ordered) Touched(k string) {
	if !o.moveOnTouch {
		return
	}
	if e, ok := o.idx[k]; ok {
		o.l.MoveToBack(e)
	}
}

func (o *ordered) Remove(k string) {
	if e, ok := o.idx[k]; ok {
		o.l.Remove(e)
		delete(o.idx, k)
	}
}

func (o *ordered) Victim() (string, bool) {
	e := o.l.Front()
	if e == nil {
		return "", false
	}
	k := o.l.Remove(e).(string)
	delete(o.idx, k)
	return k, true
}

func (o *ordered) Len() int { return len(o.idx) }

func (o *ordered) Reset() {
	o.idx = make(map[string]*list.Element)
	o.l.Init()
}
