package entity

// Stats are the index-wide counters, committed with every block.
type Stats struct {
	BlessedInscriptions uint64
	CursedInscriptions  uint64
	NextSequenceNumber  uint64
	UnboundInscriptions uint64
	LostSats            uint64
	Runes               uint64
	ReservedRunes       uint64
}
