package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/noah-isme/campus-tools/internal/models"
	"github.com/noah-isme/campus-tools/internal/service"
)

const (
	ToolGetCourseDetails = "get_course_details"
	ToolSearchCourses    = "search_courses"
)

var courseDetailsSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "term": {
      "type": "string",
      "pattern": "^[0-9]+$",
      "description": "Term code, digits only, e.g. \"2252\""
    },
    "classNumber": {
      "anyOf": [
        {"type": "string", "pattern": "^[0-9]+$"},
        {"type": "integer", "minimum": 0}
      ],
      "description": "Class number, as digits or a number"
    }
  },
  "required": ["term", "classNumber"]
}`)

var searchCoursesSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "term": {
      "type": "string",
      "pattern": "^[0-9]+$",
      "description": "Term code, digits only, e.g. \"2252\""
    },
    "subjects": {
      "anyOf": [
        {"type": "string", "pattern": "^[A-Z]{2,5}$"},
        {"type": "array", "minItems": 1, "items": {"type": "string", "pattern": "^[A-Z]{2,5}$"}}
      ],
      "description": "One subject code or a list of codes, e.g. \"MATH\" or [\"MATH\", \"CS\"]"
    },
    "courseOfferingMode": {
      "type": "integer",
      "enum": [1, 2, 3],
      "description": "Optional offering mode filter"
    }
  },
  "required": ["term", "subjects"]
}`)

type courseTools struct {
	svc *service.CourseService
}

func registerCourseTools(srv *server.MCPServer, svc *service.CourseService) {
	t := &courseTools{svc: svc}

	details := mcp.NewToolWithRawSchema(ToolGetCourseDetails,
		"Get details of one class offering by term and class number", courseDetailsSchema)
	details.Annotations = lookupAnnotations("Class details")
	srv.AddTool(details, t.getDetails)

	search := mcp.NewToolWithRawSchema(ToolSearchCourses,
		"Search class offerings for a term by subject codes. Returns at most 20 classes.", searchCoursesSchema)
	search.Annotations = lookupAnnotations("Class search")
	srv.AddTool(search, t.search)
}

func lookupAnnotations(title string) mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		Title:           title,
		ReadOnlyHint:    mcp.ToBoolPtr(true),
		DestructiveHint: mcp.ToBoolPtr(false),
		IdempotentHint:  mcp.ToBoolPtr(true),
		OpenWorldHint:   mcp.ToBoolPtr(true),
	}
}

func (t *courseTools) getDetails(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	term, err := stringArg(args, "term")
	if err != nil {
		return invalidArgs(err), nil
	}
	classNumber, err := numericStringArg(args, "classNumber")
	if err != nil {
		return invalidArgs(err), nil
	}

	result, err := t.svc.GetDetails(ctx, models.CourseDetailRequest{Term: term, ClassNumber: classNumber})
	if err != nil {
		return render("", err)
	}
	return render(result.Text, nil)
}

func (t *courseTools) search(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	term, err := stringArg(args, "term")
	if err != nil {
		return invalidArgs(err), nil
	}
	subjects, err := stringListArg(args, "subjects")
	if err != nil {
		return invalidArgs(err), nil
	}
	mode, err := optionalIntArg(args, "courseOfferingMode")
	if err != nil {
		return invalidArgs(err), nil
	}

	result, err := t.svc.Search(ctx, models.CourseSearchRequest{Term: term, Subjects: subjects, CourseOfferingMode: mode})
	if err != nil {
		return render("", err)
	}
	return render(result.Text, nil)
}
