package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/rewear-app/rewear-api/pkg/errors"
)

func newSwap(status SwapStatus) *Swap {
	return &Swap{
		ID:              "swap-1",
		RequesterID:     "requester",
		OwnerID:         "owner",
		RequestedItemID: "item-1",
		Status:          status,
	}
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	return appErr.Code
}

func TestSwapGuardHappyPath(t *testing.T) {
	swap := newSwap(SwapStatusPending)
	require.NoError(t, swap.Guard("owner", SwapActionAccept))

	swap.Status = SwapStatusAccepted
	require.NoError(t, swap.Guard("owner", SwapActionComplete))
	require.NoError(t, swap.Guard("requester", SwapActionComplete))
}

func TestSwapGuardOwnerOnlyResponses(t *testing.T) {
	swap := newSwap(SwapStatusPending)

	err := swap.Guard("requester", SwapActionAccept)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	err = swap.Guard("requester", SwapActionReject)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))
}

func TestSwapGuardCancelRequesterOnly(t *testing.T) {
	swap := newSwap(SwapStatusPending)

	err := swap.Guard("owner", SwapActionCancel)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	require.NoError(t, swap.Guard("requester", SwapActionCancel))

	swap.Status = SwapStatusAccepted
	require.NoError(t, swap.Guard("requester", SwapActionCancel))
}

func TestSwapGuardOutsider(t *testing.T) {
	swap := newSwap(SwapStatusPending)

	for _, action := range []SwapAction{SwapActionAccept, SwapActionReject, SwapActionCancel, SwapActionComplete} {
		err := swap.Guard("stranger", action)
		require.Error(t, err)
		assert.Equal(t, "FORBIDDEN", errCode(t, err))
	}
}

func TestSwapGuardTerminalStates(t *testing.T) {
	for _, status := range []SwapStatus{SwapStatusRejected, SwapStatusCompleted, SwapStatusCancelled} {
		require.True(t, status.Terminal())
		swap := newSwap(status)
		for _, actor := range []string{"requester", "owner"} {
			for _, action := range []SwapAction{SwapActionAccept, SwapActionReject, SwapActionCancel, SwapActionComplete} {
				err := swap.Guard(actor, action)
				require.Error(t, err, "status=%s actor=%s action=%s", status, actor, action)
				code := errCode(t, err)
				assert.Contains(t, []string{"FORBIDDEN", "INVALID_TRANSITION"}, code)
			}
		}
	}
}

func TestSwapGuardWrongSourceState(t *testing.T) {
	swap := newSwap(SwapStatusPending)
	err := swap.Guard("owner", SwapActionComplete)
	require.Error(t, err)
	assert.Equal(t, "INVALID_TRANSITION", errCode(t, err))
	assert.Contains(t, err.Error(), "pending")

	swap.Status = SwapStatusAccepted
	err = swap.Guard("owner", SwapActionAccept)
	require.Error(t, err)
	assert.Equal(t, "INVALID_TRANSITION", errCode(t, err))
}

func TestSwapGuardUnknownAction(t *testing.T) {
	swap := newSwap(SwapStatusPending)
	err := swap.Guard("owner", SwapAction("archive"))
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", errCode(t, err))
}

func TestSwapActionTargets(t *testing.T) {
	cases := map[SwapAction]SwapStatus{
		SwapActionAccept:   SwapStatusAccepted,
		SwapActionReject:   SwapStatusRejected,
		SwapActionCancel:   SwapStatusCancelled,
		SwapActionComplete: SwapStatusCompleted,
	}
	for action, want := range cases {
		got, ok := action.Target()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := SwapAction("archive").Target()
	assert.False(t, ok)
}

func TestSwapHasPointsSettlement(t *testing.T) {
	swap := newSwap(SwapStatusPending)
	assert.False(t, swap.HasPointsSettlement())

	zero := 0
	swap.PointsOffered = &zero
	assert.False(t, swap.HasPointsSettlement())

	fifty := 50
	swap.PointsOffered = &fifty
	assert.True(t, swap.HasPointsSettlement())
}
