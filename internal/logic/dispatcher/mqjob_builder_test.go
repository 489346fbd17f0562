package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/internal/logic/engine"
	"jup-indexer-sol/internal/logic/entity"
	"jup-indexer-sol/internal/testutil"
	"jup-indexer-sol/pkg/types"
)

func sampleChanges(n int) *entity.Changes {
	tables := entity.NewTables()
	for i := 0; i < n; i++ {
		var sig types.Signature
		for j := range sig {
			sig[j] = byte(i*7 + j)
		}
		row, _ := tables.CreateRow(entity.TypeSwap, sig.String())
		row.Key = sig[:]
		row.Set("id", sig.String()).Set("inputAmount", "1000").Set("outputAmount", "950")
	}
	return &entity.Changes{Slot: 123456789, BlockTime: 1700000000, Rows: tables.Rows()}
}

func TestBuildEntityKafkaJobs_PartitionsAndRoundTrip(t *testing.T) {
	changes := sampleChanges(20)
	jobs, err := BuildEntityKafkaJobs(changes, 2, "jup-entities", 4)
	require.NoError(t, err)
	require.NotEmpty(t, jobs)

	seen := map[string]bool{}
	for _, job := range jobs {
		assert.Equal(t, "jup-entities", job.Topic)
		assert.Less(t, job.Partition, int32(4))
		assert.Equal(t, "123456789", string(job.Key))

		slot, rows, err := DecodeEntityBatch(job.Value)
		require.NoError(t, err)
		assert.Equal(t, uint64(123456789), slot)
		for _, row := range rows {
			assert.Equal(t, entity.TypeSwap, row.Entity)
			v, ok := row.Get("outputAmount")
			assert.True(t, ok)
			assert.Equal(t, "950", v)
			assert.Equal(t, []string{"id", "inputAmount", "outputAmount"},
				[]string{row.Fields[0].Name, row.Fields[1].Name, row.Fields[2].Name})
			seen[row.ID] = true
		}
	}
	assert.Len(t, seen, 20)
}

func TestBuildEntityKafkaJobs_Empty(t *testing.T) {
	jobs, err := BuildEntityKafkaJobs(&entity.Changes{Slot: 1}, 0, "t", 4)
	require.NoError(t, err)
	assert.Nil(t, jobs)

	jobs, err = BuildEntityKafkaJobs(nil, 0, "t", 4)
	require.NoError(t, err)
	assert.Nil(t, jobs)
}

func TestBuildEntityKafkaJobs_SinglePartition(t *testing.T) {
	jobs, err := BuildEntityKafkaJobs(sampleChanges(3), 0, "t", 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, int32(0), jobs[0].Partition)

	_, rows, err := DecodeEntityBatch(jobs[0].Value)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestDecodeEntityBatch_Errors(t *testing.T) {
	_, _, err := DecodeEntityBatch([]byte{1, 0})
	assert.Error(t, err)

	_, _, err = DecodeEntityBatch([]byte{9, 0, 0, 0})
	assert.Error(t, err, "unknown event type")
}

// 同一区块处理两次，编码后的消息逐字节一致
func TestEncodedBlockIsIdempotent(t *testing.T) {
	user := testutil.Key(1)
	userX, userY, vaultX, vaultY := testutil.Key(5), testutil.Key(6), testutil.Key(9), testutil.Key(10)
	mintX, mintY := testutil.Key(2), testutil.Key(3)

	build := func(seed byte) *testutil.TxBuilder {
		b := testutil.NewTx(seed, user)
		b.TokenAccount(userX, mintX, user, 6, 5000, 4000)
		b.TokenAccount(userY, mintY, user, 6, 0, 950)
		b.TokenAccount(vaultX, mintX, testutil.Key(8), 6, 0, 1000)
		b.TokenAccount(vaultY, mintY, testutil.Key(8), 6, 2000, 1050)
		outer := b.Outer(consts.JupiterV6Program, testutil.V6RouteData(1000, 940), testutil.V6RouteAccounts(user, userX, userY, mintY)...)
		b.Inner(outer, 2, testutil.Key(40), []byte{1})
		b.Transfer(outer, 3, userX, vaultX, user, 1000)
		b.Transfer(outer, 3, vaultY, userY, testutil.Key(8), 950)
		return b
	}
	block := testutil.Block(500, 1700000500, build(1).Build(0), build(2).Build(1))

	encode := func() [][]byte {
		res, err := engine.ProcessBlock(block)
		require.NoError(t, err)
		require.Equal(t, 2, res.Stats.Swaps)
		jobs, err := BuildEntityKafkaJobs(res.Changes, 1, "t", 8)
		require.NoError(t, err)
		out := make([][]byte, 0, len(jobs))
		for _, j := range jobs {
			out = append(out, j.Value)
		}
		return out
	}
	assert.Equal(t, encode(), encode())
}
