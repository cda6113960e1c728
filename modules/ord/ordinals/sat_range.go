package ordinals

// SatRange is the half-open interval [Start, End) of sats.
type SatRange struct {
	Start uint64
	End   uint64
}

func (r SatRange) Count() uint64 {
	return r.End - r.Start
}

func (r SatRange) Contains(sat uint64) bool {
	return sat >= r.Start && sat < r.End
}

type SatRanges []SatRange

func (r SatRanges) Count() uint64 {
	var count uint64
	for _, satRange := range r {
		count += satRange.Count()
	}
	return count
}

// SatAt returns the sat at offset when the ranges are laid end to end.
func (r SatRanges) SatAt(offset uint64) (Sat, bool) {
	for _, satRange := range r {
		if offset < satRange.Count() {
			return Sat(satRange.Start + offset), true
		}
		offset -= satRange.Count()
	}
	return 0, false
}

// SatPool is the ordered sequence of sats flowing through a transaction.
// Outputs take sats from the front; whatever is left over is the fee.
type SatPool struct {
	ranges SatRanges
}

func NewSatPool(ranges ...SatRange) *SatPool {
	pool := &SatPool{}
	pool.Push(ranges...)
	return pool
}

// Push appends ranges to the back of the pool. Empty ranges are dropped.
func (p *SatPool) Push(ranges ...SatRange) {
	for _, satRange := range ranges {
		if satRange.Count() > 0 {
			p.ranges = append(p.ranges, satRange)
		}
	}
}

// Take removes up to n sats from the front of the pool, splitting a range at the boundary.
// It returns fewer than n sats only if the pool runs dry.
func (p *SatPool) Take(n uint64) SatRanges {
	var taken SatRanges
	for n > 0 && len(p.ranges) > 0 {
		head := p.ranges[0]
		if head.Count() <= n {
			taken = append(taken, head)
			n -= head.Count()
			p.ranges = p.ranges[1:]
			continue
		}
		taken = append(taken, SatRange{Start: head.Start, End: head.Start + n})
		p.ranges[0].Start += n
		n = 0
	}
	return taken
}

func (p *SatPool) Count() uint64 {
	return p.ranges.Count()
}

func (p *SatPool) IsEmpty() bool {
	return len(p.ranges) == 0
}

// Remaining returns the sats not yet taken without consuming them.
func (p *SatPool) Remaining() SatRanges {
	return append(SatRanges(nil), p.ranges...)
}

// Drain returns the sats not yet taken and empties the pool.
func (p *SatPool) Drain() SatRanges {
	ranges := p.ranges
	p.ranges = nil
	return ranges
}
