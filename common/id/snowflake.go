package id

import (
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a new globally unique int64 ID using the Snowflake algorithm.
// IDs are time-ordered and unique across distributed instances.
func New() int64 {
	return node.Generate().Int64()
}

// String generates a new ID in string form. Suggestion ids are strings
// end to end so they round-trip through JSON without precision loss.
func String() string {
	return Format(New())
}

// Format renders an id in the decimal form String uses.
func Format(n int64) string {
	return strconv.FormatInt(n, 10)
}
