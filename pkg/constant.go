package pkg

import "math"

// INF_WEIGHT is the cost of a blocked edge and the implicit g/rhs of an untouched vertex.
var INF_WEIGHT = math.Inf(1)

const (
	DIAGONAL_COST = math.Sqrt2

	DEFAULT_SESSION_CAPACITY = 1024
	DEFAULT_MAX_PATH_LENGTH  = 1 << 22
)
