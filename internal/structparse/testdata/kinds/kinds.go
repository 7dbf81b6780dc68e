package kinds

import (
	"io"
	"sync"
)

type (
	// @omit(Bad, A)
	Reader interface {
		io.Reader
	}

	// @pick(Bad2, A)
	Alias = sync.Mutex

	// @omit(Bad3)
	Count int
)

// @pick(PairKey, Key)
type Pair[K comparable, V any] struct {
	Key   K
	Value V
	*sync.Mutex
	io.Writer
}
