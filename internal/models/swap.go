package models

import (
	"fmt"
	"time"

	appErrors "github.com/rewear-app/rewear-api/pkg/errors"
)

// SwapStatus tracks the lifecycle of a swap request.
type SwapStatus string

const (
	SwapStatusPending   SwapStatus = "pending"
	SwapStatusAccepted  SwapStatus = "accepted"
	SwapStatusRejected  SwapStatus = "rejected"
	SwapStatusCompleted SwapStatus = "completed"
	SwapStatusCancelled SwapStatus = "cancelled"
)

// Terminal reports whether no further transitions are permitted.
func (s SwapStatus) Terminal() bool {
	switch s {
	case SwapStatusRejected, SwapStatusCompleted, SwapStatusCancelled:
		return true
	}
	return false
}

// SwapAction enumerates the transitions a party can request.
type SwapAction string

const (
	SwapActionAccept   SwapAction = "accept"
	SwapActionReject   SwapAction = "reject"
	SwapActionCancel   SwapAction = "cancel"
	SwapActionComplete SwapAction = "complete"
)

// Target returns the status the action leads to.
func (a SwapAction) Target() (SwapStatus, bool) {
	switch a {
	case SwapActionAccept:
		return SwapStatusAccepted, true
	case SwapActionReject:
		return SwapStatusRejected, true
	case SwapActionCancel:
		return SwapStatusCancelled, true
	case SwapActionComplete:
		return SwapStatusCompleted, true
	}
	return "", false
}

// Swap represents a proposed or executed exchange between two users.
type Swap struct {
	ID              string     `db:"id" json:"id"`
	RequesterID     string     `db:"requester_id" json:"requester_id"`
	OwnerID         string     `db:"owner_id" json:"owner_id"`
	RequestedItemID string     `db:"requested_item_id" json:"requested_item_id"`
	OfferedItemID   *string    `db:"offered_item_id" json:"offered_item_id,omitempty"`
	PointsOffered   *int       `db:"points_offered" json:"points_offered,omitempty"`
	Message         string     `db:"message" json:"message,omitempty"`
	Status          SwapStatus `db:"status" json:"status"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// CreateSwapRequest holds the payload for proposing a swap. At least one of
// OfferedItemID and PointsOffered must carry a settlement.
type CreateSwapRequest struct {
	RequestedItemID string  `json:"requested_item_id" validate:"required"`
	OfferedItemID   *string `json:"offered_item_id,omitempty"`
	PointsOffered   *int    `json:"points_offered,omitempty"`
	Message         string  `json:"message" validate:"max=500"`
}

// HasPointsSettlement reports whether the swap settles (at least partly)
// in points.
func (s *Swap) HasPointsSettlement() bool {
	return s.PointsOffered != nil && *s.PointsOffered > 0
}

// Party reports whether the given user is the requester or the owner.
func (s *Swap) Party(userID string) bool {
	return userID == s.RequesterID || userID == s.OwnerID
}

// Guard validates a transition request against the swap's current state and
// the actor's role. Authorization is checked before state so an outsider
// always sees FORBIDDEN, never the swap's internal state.
func (s *Swap) Guard(actorID string, action SwapAction) error {
	if !s.Party(actorID) {
		return appErrors.Clone(appErrors.ErrForbidden, "not a party to this swap")
	}

	switch action {
	case SwapActionAccept, SwapActionReject:
		if actorID != s.OwnerID {
			return appErrors.Clone(appErrors.ErrForbidden, "only the item owner can respond to a swap request")
		}
		if s.Status != SwapStatusPending {
			return s.transitionErr(action)
		}
	case SwapActionCancel:
		if actorID != s.RequesterID {
			return appErrors.Clone(appErrors.ErrForbidden, "only the requester can cancel a swap")
		}
		if s.Status != SwapStatusPending && s.Status != SwapStatusAccepted {
			return s.transitionErr(action)
		}
	case SwapActionComplete:
		if s.Status != SwapStatusAccepted {
			return s.transitionErr(action)
		}
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown swap action %q", action))
	}

	return nil
}

func (s *Swap) transitionErr(action SwapAction) error {
	return appErrors.Clone(appErrors.ErrInvalidTransition,
		fmt.Sprintf("cannot %s a swap in state %q", action, s.Status))
}
