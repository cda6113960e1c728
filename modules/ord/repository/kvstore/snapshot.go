package kvstore

import (
	"github.com/gaze-network/ord-indexer/internal/kvdb"
)

// Snapshot reads the state of the last block committed before it was taken.
type Snapshot struct {
	reader
	snapshot kvdb.Snapshot
}

func (s *Snapshot) Release() {
	s.snapshot.Release()
}
