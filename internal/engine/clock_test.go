package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var _ Sequencer = (*Clock)(nil)

func TestClockStart(t *testing.T) {
	c := NewClock()

	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(1), c.Current(), "Current must not advance the clock")
}

// Stamping from many workers hands out every seq exactly once.
func TestClockConcurrentStamps(t *testing.T) {
	c := NewClock()
	const workers, perWorker = 16, 250

	stamps := make([][]int64, workers)
	var g errgroup.Group
	for w := range workers {
		g.Go(func() error {
			for range perWorker {
				stamps[w] = append(stamps[w], c.Next())
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[int64]bool, workers*perWorker)
	for _, ws := range stamps {
		for i, s := range ws {
			assert.False(t, seen[s], "seq %d handed out twice", s)
			seen[s] = true
			if i > 0 {
				assert.Greater(t, s, ws[i-1], "one worker must see increasing seqs")
			}
		}
	}
	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, int64(workers*perWorker), c.Current())
}
