package businessflow

import (
	"bytes"
	"log"
	"testing"

	"github.com/invitewave/invitewave/app/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionIDs(t *testing.T) {
	makeIDs := func(n int) []uint {
		ids := make([]uint, n)
		for i := range ids {
			ids[i] = uint(i + 1)
		}
		return ids
	}

	t.Run("batch count is ceil of n over size", func(t *testing.T) {
		tests := []struct {
			n, size, batches int
		}{
			{1, 200, 1},
			{200, 200, 1},
			{201, 200, 2},
			{399, 200, 2},
			{400, 200, 2},
			{401, 200, 3},
			{7, 3, 3},
		}
		for _, tt := range tests {
			chunks := partitionIDs(makeIDs(tt.n), tt.size)
			assert.Len(t, chunks, tt.batches, "n=%d size=%d", tt.n, tt.size)
		}
	})

	t.Run("every id lands in exactly one batch", func(t *testing.T) {
		ids := makeIDs(457)
		chunks := partitionIDs(ids, 100)

		seen := make(map[uint]int)
		for _, chunk := range chunks {
			for _, id := range chunk {
				seen[id]++
			}
		}
		require.Len(t, seen, len(ids))
		for id, count := range seen {
			assert.Equal(t, 1, count, "id %d", id)
		}
	})

	t.Run("only the last batch may be short", func(t *testing.T) {
		chunks := partitionIDs(makeIDs(457), 100)
		require.Len(t, chunks, 5)
		for i := 0; i < 4; i++ {
			assert.Len(t, chunks[i], 100)
		}
		assert.Len(t, chunks[4], 57)
	})

	t.Run("order is preserved", func(t *testing.T) {
		chunks := partitionIDs([]uint{5, 3, 9, 1}, 2)
		require.Len(t, chunks, 2)
		assert.Equal(t, []uint{5, 3}, chunks[0])
		assert.Equal(t, []uint{9, 1}, chunks[1])
	})

	t.Run("empty input yields no batches", func(t *testing.T) {
		assert.Nil(t, partitionIDs(nil, 200))
	})

	t.Run("non-positive size yields no batches", func(t *testing.T) {
		assert.Nil(t, partitionIDs(makeIDs(3), 0))
		assert.Nil(t, partitionIDs(makeIDs(3), -1))
	})
}

func TestSkipDispatchLogsReason(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	reasons := []string{
		DispatchReasonCampaignDisabled,
		DispatchReasonContentDisabled,
		DispatchReasonNoUsableTemplates,
		DispatchReasonNothingPending,
	}
	for _, reason := range reasons {
		buf.Reset()
		resp := skipDispatch(3, 1, reason)

		require.NotNil(t, resp)
		assert.Equal(t, dto.DispatchCampaignResponse{Reason: reason}, *resp)
		assert.Contains(t, buf.String(), "campaign 3 site 1")
		assert.Contains(t, buf.String(), reason)
	}
}
