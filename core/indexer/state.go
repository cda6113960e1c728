package indexer

import "fmt"

type Status int

const (
	StatusIdle Status = iota
	StatusIndexing
	StatusRollingBack
	StatusCommitted
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusIndexing:
		return "indexing"
	case StatusRollingBack:
		return "rolling_back"
	case StatusCommitted:
		return "committed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// State is the position of the indexer state machine.
//
//   - Idle: nothing committed yet
//   - Indexing(Height): staging block Height
//   - RollingBack(Height, To): undoing committed blocks from Height down to To+1
//   - Committed(Height): block Height is durable
type State struct {
	Status Status
	Height int64
	To     int64
}

func (s State) String() string {
	switch s.Status {
	case StatusIdle:
		return s.Status.String()
	case StatusRollingBack:
		return fmt.Sprintf("%s(%d, %d)", s.Status, s.Height, s.To)
	default:
		return fmt.Sprintf("%s(%d)", s.Status, s.Height)
	}
}
