package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/noah-isme/campus-tools/internal/models"
)

// ErrLeaveAccountNotFound is returned when no account exists for an employee id.
var ErrLeaveAccountNotFound = errors.New("leave account not found")

// InsufficientBalanceError reports a rejected application. Nothing was mutated.
type InsufficientBalanceError struct {
	Requested int
	Available int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("requested %d day(s) but only %d available", e.Requested, e.Available)
}

// MemoryLeaveRepository keeps leave accounts in a process-local map. State lives for the
// lifetime of the process.
type MemoryLeaveRepository struct {
	mu       sync.Mutex
	accounts map[string]*models.LeaveAccount
}

// NewMemoryLeaveRepository constructs an in-memory repository seeded with accounts.
func NewMemoryLeaveRepository(seed []models.LeaveAccount) *MemoryLeaveRepository {
	repo := &MemoryLeaveRepository{accounts: make(map[string]*models.LeaveAccount, len(seed))}
	for i := range seed {
		repo.accounts[seed[i].EmployeeID] = seed[i].Clone()
	}
	return repo
}

// Find returns a copy of the account for employeeID.
func (r *MemoryLeaveRepository) Find(_ context.Context, employeeID string) (*models.LeaveAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[employeeID]
	if !ok {
		return nil, ErrLeaveAccountNotFound
	}
	return account.Clone(), nil
}

// Apply books all dates or none. The balance check and the mutation happen under one lock.
func (r *MemoryLeaveRepository) Apply(_ context.Context, employeeID string, dates []string) (*models.LeaveAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[employeeID]
	if !ok {
		return nil, ErrLeaveAccountNotFound
	}
	if len(dates) > account.Balance {
		return nil, &InsufficientBalanceError{Requested: len(dates), Available: account.Balance}
	}

	account.Balance -= len(dates)
	account.History = append(account.History, dates...)
	return account.Clone(), nil
}

// Seed inserts accounts that do not exist yet. Existing accounts are left untouched.
func (r *MemoryLeaveRepository) Seed(_ context.Context, accounts []models.LeaveAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range accounts {
		if _, exists := r.accounts[accounts[i].EmployeeID]; exists {
			continue
		}
		r.accounts[accounts[i].EmployeeID] = accounts[i].Clone()
	}
	return nil
}
