package collective_test

import (
	"context"
	"testing"

	"github.com/mtcl-go/collectives/pkg/collective"
	"github.com/mtcl-go/collectives/pkg/memhandle"
	"github.com/stretchr/testify/require"
)

func TestNewBaseValidatesParticipantShape(t *testing.T) {
	h1, h2 := memhandle.NewPair()
	_ = h2

	_, err := collective.NewBaseForTest("test", []collective.Handle{h1}, 3, 0, true, 0)
	require.ErrorIs(t, err, collective.ErrInvalidArgument, "root view needs nparticipants-1 handles")

	_, err = collective.NewBaseForTest("test", []collective.Handle{h1, h1}, 3, 1, false, 0)
	require.ErrorIs(t, err, collective.ErrInvalidArgument, "non-root view needs exactly 1 handle")

	_, err = collective.NewBaseForTest("test", nil, 0, 0, false, 0)
	require.ErrorIs(t, err, collective.ErrInvalidArgument)

	_, err = collective.NewBaseForTest("test", []collective.Handle{h1}, 3, 5, false, 0)
	require.ErrorIs(t, err, collective.ErrInvalidArgument, "rank out of range")
}

func TestBaseDefaultOperationsAreRejected(t *testing.T) {
	h1, h2 := memhandle.NewPair()
	root, err := collective.NewBaseForTest("test", []collective.Handle{h1, h2}, 3, 0, true, 0)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = root.Probe(ctx, true)
	require.ErrorIs(t, err, collective.ErrInvalidOperation)

	_, err = root.Send(ctx, nil)
	require.ErrorIs(t, err, collective.ErrInvalidOperation)

	_, err = root.Receive(ctx, nil)
	require.ErrorIs(t, err, collective.ErrInvalidOperation)

	_, err = root.SendRecv(ctx, nil, 0, nil, 0, 1)
	require.ErrorIs(t, err, collective.ErrInvalidOperation)
}

func TestTeamPartitionSize(t *testing.T) {
	h1, _ := memhandle.NewPair()
	b, err := collective.NewBaseForTest("test", []collective.Handle{h1}, 3, 1, false, 0)
	require.NoError(t, err)

	// 10 elements over 3 ranks: shares {4,3,3}; rank 1 gets base (3).
	require.Equal(t, 3, b.TeamPartitionSize(10))

	b0, err := collective.NewBaseForTest("test", []collective.Handle{h1}, 3, 0, false, 0)
	require.NoError(t, err)
	require.Equal(t, 4, b0.TeamPartitionSize(10))
}
