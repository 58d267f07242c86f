package consensus

import (
	"errors"
	"math/big"
	"runtime"
	"sync"

	"github.com/beaconsim/beaconsim/beaconcrypto"
	"github.com/beaconsim/beaconsim/params"
	"github.com/beaconsim/beaconsim/types"
)

// errSearchCancelled is returned when stop fires before any worker finds a
// satisfying nonce — the cooperative-cancellation path spec.md §5 requires
// when a competing block at the same height arrives locally.
var errSearchCancelled = errors.New("consensus: nonce search cancelled")

// searchResult is one worker's candidate solution.
type searchResult struct {
	nonce uint64
	hash  types.Hash
}

// searchNonce finds a nonce such that header's signing-message hash,
// interpreted as a big-endian integer, is strictly less than cfg.Ceiling
// (spec.md §4.4 block validity step 4, P4). Grounded directly on the
// teacher's LightPoW.Solve/solveWorker: a fixed pool of worker goroutines
// striding over the nonce space, racing to a shared results channel, torn
// down either by the first accepted solution or by the caller's stop
// channel.
func searchNonce(header types.BlockHeader, cfg *params.Config, stop <-chan struct{}) (uint64, types.Hash, error) {
	numWorkers := runtime.NumCPU()
	if numWorkers < 1 {
		numWorkers = 1
	}

	results := make(chan searchResult, numWorkers)
	done := make(chan struct{})
	var once sync.Once

	for w := 0; w < numWorkers; w++ {
		go func(workerID int) {
			nonce := uint64(workerID)
			step := uint64(numWorkers)
			h := header
			for {
				select {
				case <-done:
					return
				case <-stop:
					return
				default:
				}

				h.Nonce = nonce
				hash := beaconcrypto.HashBlockHeader(&h)
				hashInt := new(big.Int).SetBytes(hash.Bytes())
				if hashInt.Cmp(cfg.Ceiling) < 0 {
					select {
					case results <- searchResult{nonce: nonce, hash: hash}:
					case <-done:
					}
					return
				}
				nonce += step
			}
		}(w)
	}

	select {
	case r := <-results:
		once.Do(func() { close(done) })
		return r.nonce, r.hash, nil
	case <-stop:
		once.Do(func() { close(done) })
		return 0, types.Hash{}, errSearchCancelled
	}
}
