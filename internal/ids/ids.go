package ids

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// New returns a sortable entity identifier.
func New() string {
	return ksuid.New().String()
}

// OrderNumbers hands out human-facing order numbers such as ORD1790203948123402240.
type OrderNumbers struct {
	node *snowflake.Node
}

func NewOrderNumbers(nodeID int64) (*OrderNumbers, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node: %w", err)
	}
	return &OrderNumbers{node: node}, nil
}

func (o *OrderNumbers) Next() string {
	return "ORD" + o.node.Generate().String()
}
