// Package idgen issues human readable business numbers backed by snowflake ids.
package idgen

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/erp/settlement/internal/domain/shared"
)

// SnowflakeGenerator formats numbers as PREFIX-<snowflake id>. Ids from one
// node are unique and increase over time, so numbers sort by issue order.
type SnowflakeGenerator struct {
	node *snowflake.Node
}

// NewSnowflakeGenerator creates a generator for the given node id (0-1023).
// Every process writing to the same database needs its own node id.
func NewSnowflakeGenerator(nodeID int64) (*SnowflakeGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node %d: %w", nodeID, err)
	}
	return &SnowflakeGenerator{node: node}, nil
}

// Generate returns a new number such as INV-1764412345678901248
func (g *SnowflakeGenerator) Generate(prefix string) string {
	id := g.node.Generate()
	if prefix == "" {
		return id.String()
	}
	return strings.ToUpper(prefix) + "-" + id.String()
}

// Parse extracts the snowflake id from a number produced by Generate
func Parse(number string) (snowflake.ID, error) {
	raw := number
	if i := strings.LastIndexByte(number, '-'); i >= 0 {
		raw = number[i+1:]
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid business number %q: %w", number, err)
	}
	return id, nil
}

var _ shared.NumberGenerator = (*SnowflakeGenerator)(nil)
