package models

import "time"

// Replacement is one edge of a succession chain: OldEmployeeID was replaced by NewEmployeeID.
// PreviousReplacementID and NextReplacementID link neighbouring edges so a chain forms a simple path.
type Replacement struct {
	ID                    int64     `db:"id" json:"id"`
	OldEmployeeID         int64     `db:"old_employee_id" json:"oldEmployeeId"`
	NewEmployeeID         int64     `db:"new_employee_id" json:"newEmployeeId"`
	Reason                *string   `db:"reason" json:"reason,omitempty"`
	ReplacementDate       Date      `db:"replacement_date" json:"replacementDate"`
	PreviousReplacementID *int64    `db:"previous_replacement_id" json:"previousReplacementId"`
	NextReplacementID     *int64    `db:"next_replacement_id" json:"nextReplacementId"`
	CreatedAt             time.Time `db:"created_at" json:"createdAt"`
}

// ReplacementDetail is a replacement edge with both employee names resolved.
type ReplacementDetail struct {
	Replacement
	OldEmployeeName string `db:"old_employee_name" json:"oldEmployeeName"`
	NewEmployeeName string `db:"new_employee_name" json:"newEmployeeName"`
	// Depth is the distance from the queried employee when the row comes from a chain walk.
	Depth *int `db:"depth" json:"depth,omitempty"`
}

// AdjacentReplacements surrounds a replacement with its chronological neighbours in the chain.
type AdjacentReplacements struct {
	Current  ReplacementDetail  `json:"current"`
	Previous *ReplacementDetail `json:"previous"`
	Next     *ReplacementDetail `json:"next"`
}

// ReplacementResult is returned by a successful replacement.
type ReplacementResult struct {
	OldEmployeeID         int64  `json:"oldEmployeeId"`
	NewEmployeeID         int64  `json:"newEmployeeId"`
	ReplacementID         int64  `json:"replacementId"`
	PreviousReplacementID *int64 `json:"previousReplacementId"`
}
