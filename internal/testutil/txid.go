package testutil

import (
	"fmt"
	"sync"
)

// SequentialTxIDGenerator produces tx-0001, tx-0002, ... in call order.
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with a fresh generator produces byte-identical event logs,
// since event IDs hash the tx id.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialTxIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialTxIDGenerator creates a generator. An empty prefix means "tx".
func NewSequentialTxIDGenerator(prefix string) *SequentialTxIDGenerator {
	if prefix == "" {
		prefix = "tx"
	}
	return &SequentialTxIDGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialTxIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
