package stream

import "fmt"

// State is a phase of a point cloud load
type State int

const (
	Idle State = iota
	ParsingMetadata
	LoadingHierarchy
	EnumeratingNodes
	LoadingPoints
	BuildingChunks
	Complete
	Failed
)

var stateNames = map[State]string{
	Idle:             "IDLE",
	ParsingMetadata:  "PARSING_METADATA",
	LoadingHierarchy: "LOADING_HIERARCHY",
	EnumeratingNodes: "ENUMERATING_NODES",
	LoadingPoints:    "LOADING_POINTS",
	BuildingChunks:   "BUILDING_CHUNKS",
	Complete:         "COMPLETE",
	Failed:           "FAILED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsTerminal reports whether no further step can change the state
func (s State) IsTerminal() bool {
	return s == Complete || s == Failed
}

// Progress is a snapshot of a running load
type Progress struct {
	State        State
	TotalNodes   int
	LoadedNodes  int
	LoadedPoints int
	Chunks       int
}
