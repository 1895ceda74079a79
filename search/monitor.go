package search

import "github.com/poiesic/chunkstore/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query *core.SearchQuery)
	AfterLexicalScan(candidates []*core.Chunk)
	AfterVectorScan(candidates []*core.Chunk)
	LexicalHit(chunkID string, score float64)
	VectorHit(chunkID string, score float64)
	HybridMerge(chunkID string, lexScore, vecScore, merged float64)
	Finish(results []*core.ScoredResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ *core.SearchQuery)                      {}
func (n *noopMonitor) AfterLexicalScan(_ []*core.Chunk)               {}
func (n *noopMonitor) AfterVectorScan(_ []*core.Chunk)                {}
func (n *noopMonitor) LexicalHit(_ string, _ float64)                 {}
func (n *noopMonitor) VectorHit(_ string, _ float64)                  {}
func (n *noopMonitor) HybridMerge(_ string, _, _, _ float64)          {}
func (n *noopMonitor) Finish(_ []*core.ScoredResult)                  {}
