// 文件: pkg/valuation/idgen.go
// 估值 ID 生成器
// 使用开源库: github.com/bwmarrin/snowflake

package valuation

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// IDGenerator 雪花 ID，多实例部署时 nodeID 必须不同
type IDGenerator struct {
	node *snowflake.Node
}

// NewIDGenerator nodeID: 0-1023
func NewIDGenerator(nodeID int64) (*IDGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return &IDGenerator{node: node}, nil
}

// Next 生成下一个 ID (并发安全)
func (g *IDGenerator) Next() int64 {
	return g.node.Generate().Int64()
}
