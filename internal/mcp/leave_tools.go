package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/noah-isme/campus-tools/internal/models"
	"github.com/noah-isme/campus-tools/internal/service"
)

const (
	ToolGetLeaveBalance = "get_leave_balance"
	ToolApplyLeave      = "apply_leave"
	ToolGetLeaveHistory = "get_leave_history"
)

type leaveTools struct {
	svc *service.LeaveService
}

func registerLeaveTools(srv *server.MCPServer, svc *service.LeaveService) {
	t := &leaveTools{svc: svc}

	srv.AddTool(mcp.NewTool(ToolGetLeaveBalance,
		mcp.WithDescription("Check how many leave days are left for an employee"),
		mcp.WithString("employee_id", mcp.Required(), mcp.Description("Employee identifier, e.g. E001")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	), t.getBalance)

	srv.AddTool(mcp.NewTool(ToolApplyLeave,
		mcp.WithDescription("Apply leave for specific dates. All dates are booked or none are."),
		mcp.WithString("employee_id", mcp.Required(), mcp.Description("Employee identifier, e.g. E001")),
		mcp.WithArray("leave_dates", mcp.Required(),
			mcp.Description("Dates to book, in order, e.g. [\"2025-04-17\", \"2025-04-18\"]"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	), t.applyLeave)

	srv.AddTool(mcp.NewTool(ToolGetLeaveHistory,
		mcp.WithDescription("Get the leave dates already taken by an employee"),
		mcp.WithString("employee_id", mcp.Required(), mcp.Description("Employee identifier, e.g. E001")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	), t.getHistory)
}

func (t *leaveTools) getBalance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	employeeID, err := stringArg(req.GetArguments(), "employee_id")
	if err != nil {
		return invalidArgs(err), nil
	}
	return renderOutcome(t.svc.GetBalance(ctx, employeeID))
}

func (t *leaveTools) applyLeave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	employeeID, err := stringArg(args, "employee_id")
	if err != nil {
		return invalidArgs(err), nil
	}
	dates, err := strictStringListArg(args, "leave_dates")
	if err != nil {
		return invalidArgs(err), nil
	}
	return renderOutcome(t.svc.ApplyLeave(ctx, models.ApplyLeaveRequest{EmployeeID: employeeID, LeaveDates: dates}))
}

func (t *leaveTools) getHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	employeeID, err := stringArg(req.GetArguments(), "employee_id")
	if err != nil {
		return invalidArgs(err), nil
	}
	return renderOutcome(t.svc.GetHistory(ctx, employeeID))
}

func renderOutcome(outcome *models.LeaveOutcome, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return render("", err)
	}
	return render(outcome.Message, nil)
}
