package overworld

import "errors"

var (
	// ErrCapacityExceeded reports a block, chunk or adjacency list that grew
	// past its hard cap. The tiling invariant cannot survive silent
	// truncation, so overflow fails loudly instead.
	ErrCapacityExceeded = errors.New("overworld: capacity exceeded")

	// ErrBlockNotFound reports a lookup for a block ID that does not exist.
	ErrBlockNotFound = errors.New("overworld: block not found")

	// ErrNoTerritory reports a territory operation on a map with no
	// conquered blocks.
	ErrNoTerritory = errors.New("overworld: no conquered territory")

	// ErrNotStarted reports an operation that requires GenerateStartingArea
	// to have run first.
	ErrNotStarted = errors.New("overworld: campaign not started")

	// ErrFactionDiversity reports that faction assignment could not place
	// enough distinct rivals around the home block within the retry budget.
	ErrFactionDiversity = errors.New("overworld: insufficient rival diversity at start block")
)
