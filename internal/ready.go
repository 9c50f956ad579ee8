package internal

import (
	"sync/atomic"

	"avvai/internal/constants"
	"avvai/internal/retrieval"
	"avvai/internal/vector"
)

// ReadyState is everything a chat request needs. It is built once and never mutated afterwards.
type ReadyState struct {
	Retriever  *retrieval.Retriever
	Index      vector.Index
	Verses     []constants.Verse
	CorpusPath string
}

// Brain - holds the published ReadyState. Nil until bootstrap finishes.
type Brain struct {
	state atomic.Pointer[ReadyState]
}

func NewBrain() *Brain {
	return &Brain{}
}

// Publish stores the state once. Later calls are ignored and return false.
func (b *Brain) Publish(state *ReadyState) bool {
	if state == nil {
		return false
	}
	return b.state.CompareAndSwap(nil, state)
}

// Ready returns the published state, or nil while loading.
func (b *Brain) Ready() *ReadyState {
	return b.state.Load()
}

func (b *Brain) Close() error {
	if s := b.state.Load(); s != nil && s.Index != nil {
		return s.Index.Close()
	}
	return nil
}
