package models

// LeaveAccount holds an employee's remaining leave days and the dates already taken,
// in application order.
type LeaveAccount struct {
	EmployeeID string   `db:"employee_id" json:"employee_id"`
	Balance    int      `db:"balance" json:"balance"`
	History    []string `db:"-" json:"history"`
}

// Clone returns a deep copy so callers never share the history slice with a store.
func (a *LeaveAccount) Clone() *LeaveAccount {
	if a == nil {
		return nil
	}
	history := make([]string, len(a.History))
	copy(history, a.History)
	return &LeaveAccount{EmployeeID: a.EmployeeID, Balance: a.Balance, History: history}
}

// LeaveOutcomeStatus classifies the result of a leave operation. Soft failures are
// reported through the status and message rather than as errors.
type LeaveOutcomeStatus string

const (
	LeaveOutcomeOK                  LeaveOutcomeStatus = "ok"
	LeaveOutcomeNotFound            LeaveOutcomeStatus = "not_found"
	LeaveOutcomeInsufficientBalance LeaveOutcomeStatus = "insufficient_balance"
	LeaveOutcomeNoHistory           LeaveOutcomeStatus = "no_history"
)

// LeaveOutcome is returned by every leave operation.
type LeaveOutcome struct {
	Status     LeaveOutcomeStatus `json:"status"`
	Message    string             `json:"message"`
	EmployeeID string             `json:"employee_id"`
	Balance    *int               `json:"balance,omitempty"`
	Requested  *int               `json:"requested,omitempty"`
	History    []string           `json:"history,omitempty"`
}

// ApplyLeaveRequest carries the dates to book for an employee. An empty list is valid.
type ApplyLeaveRequest struct {
	EmployeeID string   `json:"employee_id" validate:"required"`
	LeaveDates []string `json:"leave_dates" validate:"required"`
}

// DefaultLeaveAccounts is the seed data loaded at process start.
func DefaultLeaveAccounts() []LeaveAccount {
	return []LeaveAccount{
		{EmployeeID: "E001", Balance: 18, History: []string{"2024-12-25", "2025-01-01"}},
		{EmployeeID: "E002", Balance: 20, History: []string{}},
	}
}
