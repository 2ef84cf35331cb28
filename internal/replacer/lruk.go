package replacer

import "sync"

// LRUK evicts the frame with the largest backward k-distance: the gap
// between the current timestamp and the k-th most recent access. A frame
// with fewer than k recorded accesses has infinite backward k-distance and
// is preferred for eviction over any frame with a full k-length history;
// ties (including ties at infinity) go to whichever frame's oldest recorded
// access happened first.
type LRUK struct {
	mu sync.Mutex

	k       int
	curTime int64

	capacity  int
	history   map[int][]int64 // frameID -> up to k most recent access timestamps, oldest first
	evictable map[int]bool
}

// NewLRUK returns a Replacer tracking up to capacity frames (ids in
// [0, capacity)), evicting by backward k-distance over the last k accesses.
func NewLRUK(capacity, k int) *LRUK {
	if k < 1 {
		k = 1
	}
	return &LRUK{
		k:         k,
		capacity:  capacity,
		history:   make(map[int][]int64, capacity),
		evictable: make(map[int]bool, capacity),
	}
}

func (r *LRUK) RecordAccess(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.curTime++
	h := append(r.history[frameID], r.curTime)
	if len(h) > r.k {
		h = h[len(h)-r.k:]
	}
	r.history[frameID] = h
}

func (r *LRUK) SetEvictable(frameID int, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	was := r.evictable[frameID]
	if was == evictable {
		return
	}
	if evictable {
		r.evictable[frameID] = true
	} else {
		delete(r.evictable, frameID)
	}
}

func (r *LRUK) Evict() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	victim := -1
	victimIsInf := false
	var victimDist int64
	var victimEarliest int64

	for frameID := range r.evictable {
		h := r.history[frameID]
		if len(h) == 0 {
			continue
		}
		earliest := h[0]
		isInf := len(h) < r.k

		if victim == -1 {
			victim, victimIsInf, victimEarliest = frameID, isInf, earliest
			if !isInf {
				victimDist = r.curTime - h[0]
			}
			continue
		}

		switch {
		case isInf && !victimIsInf:
			victim, victimIsInf, victimEarliest = frameID, true, earliest
		case isInf == victimIsInf && isInf:
			if earliest < victimEarliest {
				victim, victimEarliest = frameID, earliest
			}
		case isInf == victimIsInf && !isInf:
			dist := r.curTime - h[0]
			if dist > victimDist || (dist == victimDist && earliest < victimEarliest) {
				victim, victimDist, victimEarliest = frameID, dist, earliest
			}
		}
	}

	if victim == -1 {
		return 0, false
	}

	delete(r.evictable, victim)
	delete(r.history, victim)
	return victim, true
}

func (r *LRUK) Remove(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.evictable, frameID)
	delete(r.history, frameID)
}

func (r *LRUK) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for frameID := range r.evictable {
		if len(r.history[frameID]) > 0 {
			n++
		}
	}
	return n
}
