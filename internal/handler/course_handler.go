package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-tools/internal/middleware"
	"github.com/noah-isme/campus-tools/internal/models"
	appErrors "github.com/noah-isme/campus-tools/pkg/errors"
	"github.com/noah-isme/campus-tools/pkg/response"
)

type courseService interface {
	GetDetails(ctx context.Context, req models.CourseDetailRequest) (*models.CourseDetailResult, error)
	Search(ctx context.Context, req models.CourseSearchRequest) (*models.CourseSearchResult, error)
}

// CourseHandler mirrors the course lookup tools over REST.
type CourseHandler struct {
	courses courseService
}

// NewCourseHandler constructs a course handler.
func NewCourseHandler(courses courseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// Details godoc
// @Summary Get class details
// @Tags Courses
// @Produce json
// @Param term path string true "Term code (digits)"
// @Param classNumber path string true "Class number (digits)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Failure 504 {object} response.Envelope
// @Router /courses/{term}/{classNumber} [get]
func (h *CourseHandler) Details(c *gin.Context) {
	result, err := h.courses.GetDetails(c.Request.Context(), models.CourseDetailRequest{
		Term:        c.Param("term"),
		ClassNumber: c.Param("classNumber"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetUpstream(c, "detail")
	middleware.SetCacheHit(c, result.Cached)
	response.JSON(c, http.StatusOK, result, middleware.ExtractMeta(c))
}

// Search godoc
// @Summary Search classes
// @Description Returns the upstream envelope with at most 7 classes and a count clamped to 20.
// @Tags Courses
// @Produce json
// @Param term query string true "Term code (digits)"
// @Param subjects query []string true "Subject codes, repeated or comma separated" collectionFormat(multi)
// @Param courseOfferingMode query int false "Offering mode (1, 2 or 3)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Failure 504 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) Search(c *gin.Context) {
	req := models.CourseSearchRequest{
		Term:     c.Query("term"),
		Subjects: subjectsFromQuery(c.QueryArray("subjects")),
	}
	if raw := c.Query("courseOfferingMode"); raw != "" {
		mode, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "courseOfferingMode must be one of [1 2 3]"))
			return
		}
		req.CourseOfferingMode = &mode
	}

	result, err := h.courses.Search(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetUpstream(c, "search")
	middleware.SetCacheHit(c, result.Cached)
	response.JSON(c, http.StatusOK, result.Envelope, middleware.ExtractMeta(c))
}

func subjectsFromQuery(values []string) []string {
	var subjects []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				subjects = append(subjects, trimmed)
			}
		}
	}
	return subjects
}
