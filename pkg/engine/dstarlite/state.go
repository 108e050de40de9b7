package dstarlite

type State uint8

const (
	STATE_INIT State = iota
	STATE_PLAN
	STATE_MOVE
	STATE_EDGE_UPDATE
	STATE_SUCCESS
	STATE_NO_PATH
)

func (s State) String() string {
	switch s {
	case STATE_INIT:
		return "INIT"
	case STATE_PLAN:
		return "PLAN"
	case STATE_MOVE:
		return "MOVE"
	case STATE_EDGE_UPDATE:
		return "EDGE_UPDATE"
	case STATE_SUCCESS:
		return "SUCCESS"
	case STATE_NO_PATH:
		return "NO_PATH"
	default:
		return "UNKNOWN"
	}
}

// Stats counts work done over the lifetime of a planner.
type Stats struct {
	Expanded       int `json:"expanded"`
	Pushed         int `json:"pushed"`
	Requeued       int `json:"requeued"`
	StalePops      int `json:"stale_pops"`
	Replans        int `json:"replans"`
	EdgeChanges    int `json:"edge_changes"`
	Moves          int `json:"moves"`
	TouchedVertice int `json:"touched_vertices"`
	OpenListSize   int `json:"open_list_size"`
}

// Result is the outcome of one Plan call. Found == false means no path exists from the current
// position to the goal under the current edge costs.
type Result[V comparable] struct {
	Path      []V
	TotalCost float64
	Found     bool
	Expanded  int
}
