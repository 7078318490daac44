package models

// DashboardStats aggregates a user's marketplace activity.
type DashboardStats struct {
	TotalItems          int `json:"total_items"`
	ActiveItems         int `json:"active_items"`
	PendingItems        int `json:"pending_items"`
	SwappedItems        int `json:"swapped_items"`
	PointsBalance       int `json:"points_balance"`
	PendingIncoming     int `json:"pending_incoming_swaps"`
	OngoingSwaps        int `json:"ongoing_swaps"`
	CompletedSwaps      int `json:"completed_swaps"`
	UnreadNotifications int `json:"unread_notifications"`
}
