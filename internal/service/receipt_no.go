package service

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

const receiptNoPrefix = "RC"

var (
	receiptNodeMu sync.Mutex
	receiptNode   *snowflake.Node
)

// InitReceiptNumbering 设置收款单号生成节点（多实例部署需各自唯一）
func InitReceiptNumbering(node int64) error {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return fmt.Errorf("init receipt numbering node %d: %w", node, err)
	}
	receiptNodeMu.Lock()
	receiptNode = n
	receiptNodeMu.Unlock()
	return nil
}

func generateReceiptNo() string {
	receiptNodeMu.Lock()
	if receiptNode == nil {
		receiptNode, _ = snowflake.NewNode(1)
	}
	node := receiptNode
	receiptNodeMu.Unlock()
	return receiptNoPrefix + node.Generate().String()
}
