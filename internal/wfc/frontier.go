package wfc

// FrontierEntry records that Target is adjacent to Source. Dir is the
// direction from Source to Target.
type FrontierEntry struct {
	Index  int // linear index of Target
	Source Coord
	Target Coord
	Dir    Direction
}

// Frontier holds the open and closed lists of the expansion. The open list is
// a FIFO queue in discovery order; an index is never in both lists.
type Frontier struct {
	queue  []FrontierEntry
	head   int
	open   map[int]bool
	closed map[int]bool
}

// NewFrontier creates an empty frontier
func NewFrontier() *Frontier {
	return &Frontier{
		queue:  make([]FrontierEntry, 0),
		open:   make(map[int]bool),
		closed: make(map[int]bool),
	}
}

// DiscoverOpen appends every in-bounds, empty neighbour of origin that is in
// neither list. It returns the entries it added.
func (f *Frontier) DiscoverOpen(origin Coord, g *Grid) []FrontierEntry {
	var added []FrontierEntry
	for _, dir := range ScanOrder() {
		target := origin.Step(dir)
		if !g.InBounds(target) {
			continue
		}
		idx := g.Index(target)
		if f.open[idx] || f.closed[idx] || g.Occupied(idx) {
			continue
		}
		entry := FrontierEntry{Index: idx, Source: origin, Target: target, Dir: dir}
		f.queue = append(f.queue, entry)
		f.open[idx] = true
		added = append(added, entry)
	}
	return added
}

// DiscoverClosed returns the filled neighbours of origin. These are the cells
// a candidate for origin must fit against.
func DiscoverClosed(origin Coord, g *Grid) []FrontierEntry {
	var found []FrontierEntry
	for _, dir := range ScanOrder() {
		target := origin.Step(dir)
		if !g.InBounds(target) {
			continue
		}
		idx := g.Index(target)
		if !g.Occupied(idx) {
			continue
		}
		found = append(found, FrontierEntry{Index: idx, Source: origin, Target: target, Dir: dir})
	}
	return found
}

// Pop removes the oldest open entry from the queue. The index stays marked
// open until Close is called for it.
func (f *Frontier) Pop() (FrontierEntry, bool) {
	if f.head >= len(f.queue) {
		return FrontierEntry{}, false
	}
	entry := f.queue[f.head]
	f.queue[f.head] = FrontierEntry{}
	f.head++
	if f.head == len(f.queue) {
		f.queue = f.queue[:0]
		f.head = 0
	}
	return entry, true
}

// Close moves index from the open list to the closed list
func (f *Frontier) Close(index int) {
	delete(f.open, index)
	f.closed[index] = true
}

// OpenLen returns the number of queued entries
func (f *Frontier) OpenLen() int {
	return len(f.queue) - f.head
}

// ClosedLen returns the number of processed cells
func (f *Frontier) ClosedLen() int {
	return len(f.closed)
}

// IsOpen reports whether index is on the open list
func (f *Frontier) IsOpen(index int) bool {
	return f.open[index]
}

// IsClosed reports whether index has been processed
func (f *Frontier) IsClosed(index int) bool {
	return f.closed[index]
}
