package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-tools/internal/models"
	"github.com/noah-isme/campus-tools/internal/repository"
	appErrors "github.com/noah-isme/campus-tools/pkg/errors"
)

// LeaveRepository is the storage abstraction behind the leave tools. Apply must check the
// balance and mutate in one atomic step.
type LeaveRepository interface {
	Find(ctx context.Context, employeeID string) (*models.LeaveAccount, error)
	Apply(ctx context.Context, employeeID string, dates []string) (*models.LeaveAccount, error)
}

const noLeavesTaken = "No leaves taken."

// LeaveService answers balance and history queries and books leave. Unknown employees and
// insufficient balances are reported through the outcome, not as errors.
type LeaveService struct {
	repo      LeaveRepository
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewLeaveService constructs a LeaveService.
func NewLeaveService(repo LeaveRepository, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *LeaveService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaveService{repo: repo, validator: validate, metrics: metrics, logger: logger}
}

// GetBalance reports the remaining leave days for employeeID.
func (s *LeaveService) GetBalance(ctx context.Context, employeeID string) (*models.LeaveOutcome, error) {
	if err := s.validateID(employeeID); err != nil {
		return nil, err
	}
	account, err := s.repo.Find(ctx, employeeID)
	if err != nil {
		return s.handleLookupError(employeeID, err)
	}
	balance := account.Balance
	return &models.LeaveOutcome{
		Status:     models.LeaveOutcomeOK,
		Message:    fmt.Sprintf("%s has %d leave days remaining.", employeeID, balance),
		EmployeeID: employeeID,
		Balance:    &balance,
	}, nil
}

// ApplyLeave books every date in req or none of them. An empty date list succeeds and leaves
// the balance unchanged.
func (s *LeaveService) ApplyLeave(ctx context.Context, req models.ApplyLeaveRequest) (*models.LeaveOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	requested := len(req.LeaveDates)

	account, err := s.repo.Apply(ctx, req.EmployeeID, req.LeaveDates)
	if err != nil {
		var insufficient *repository.InsufficientBalanceError
		if errors.As(err, &insufficient) {
			available := insufficient.Available
			return &models.LeaveOutcome{
				Status:     models.LeaveOutcomeInsufficientBalance,
				Message:    fmt.Sprintf("Insufficient leave balance. You requested %d day(s) but have only %d.", insufficient.Requested, available),
				EmployeeID: req.EmployeeID,
				Balance:    &available,
				Requested:  &requested,
			}, nil
		}
		return s.handleLookupError(req.EmployeeID, err)
	}

	s.metrics.AddLeaveDays(requested)
	s.logger.Info("leave applied",
		zap.String("employee_id", req.EmployeeID),
		zap.Int("days", requested),
		zap.Int("remaining", account.Balance),
	)

	balance := account.Balance
	return &models.LeaveOutcome{
		Status:     models.LeaveOutcomeOK,
		Message:    fmt.Sprintf("Leave applied for %d day(s). Remaining balance: %d.", requested, balance),
		EmployeeID: req.EmployeeID,
		Balance:    &balance,
		Requested:  &requested,
		History:    account.History,
	}, nil
}

// GetHistory lists the dates taken by employeeID in application order.
func (s *LeaveService) GetHistory(ctx context.Context, employeeID string) (*models.LeaveOutcome, error) {
	if err := s.validateID(employeeID); err != nil {
		return nil, err
	}
	account, err := s.repo.Find(ctx, employeeID)
	if err != nil {
		return s.handleLookupError(employeeID, err)
	}
	balance := account.Balance
	if len(account.History) == 0 {
		return &models.LeaveOutcome{
			Status:     models.LeaveOutcomeNoHistory,
			Message:    noLeavesTaken,
			EmployeeID: employeeID,
			Balance:    &balance,
			History:    []string{},
		}, nil
	}
	return &models.LeaveOutcome{
		Status:     models.LeaveOutcomeOK,
		Message:    fmt.Sprintf("Leave history for %s: %s", employeeID, strings.Join(account.History, ", ")),
		EmployeeID: employeeID,
		Balance:    &balance,
		History:    account.History,
	}, nil
}

func (s *LeaveService) validateID(employeeID string) error {
	if err := s.validator.Var(employeeID, "required"); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "employee_id is required")
	}
	return nil
}

func (s *LeaveService) handleLookupError(employeeID string, err error) (*models.LeaveOutcome, error) {
	if isLeaveNotFound(err) {
		return &models.LeaveOutcome{
			Status:     models.LeaveOutcomeNotFound,
			Message:    fmt.Sprintf("Employee ID %s not found.", employeeID),
			EmployeeID: employeeID,
		}, nil
	}
	s.logger.Error("leave store failure", zap.String("employee_id", employeeID), zap.Error(err))
	return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "leave store unavailable")
}

func isLeaveNotFound(err error) bool {
	return errors.Is(err, repository.ErrLeaveAccountNotFound)
}
