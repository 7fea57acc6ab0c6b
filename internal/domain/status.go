package domain

// Event status values as stored by the gateway.
const (
	StatusPending  = "pending"
	StatusInactive = "inactive"
	StatusActive   = "active"
	StatusApproved = "approved"
)

// Account approval values.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// FilterAll is the selector value meaning "no filtering on this dimension".
const FilterAll = "all"

// Sort keys accepted by the filter pipeline.
const (
	SortByDate         = "date"
	SortByLocation     = "location"
	SortByCategory     = "category"
	SortByAvailability = "availability"
)

// Tabs of the events board.
const (
	TabCurrent = "current"
	TabPast    = "past"
)
