package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-tools/internal/models"
	"github.com/noah-isme/campus-tools/pkg/config"
	appErrors "github.com/noah-isme/campus-tools/pkg/errors"
)

const (
	courseEndpointDetail = "detail"
	courseEndpointSearch = "search"

	maxCourseResponseBytes = 8 << 20

	fallbackApplicationMessage = "External API returned an error"
	fallbackUnknownMessage     = "An unexpected error occurred"
)

// HTTPDoer is the subset of *http.Client used for outbound calls.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CourseLookupError is produced by the outbound call wrapper. Message is the caller-facing
// text for Kind.
type CourseLookupError struct {
	Kind       models.CourseErrorKind
	Message    string
	StatusCode int
	Err        error
}

// Error describes the failure for logs. The caller-facing text stays in Message.
func (e *CourseLookupError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("course api %s: %v", e.Kind, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("course api %s (status %d)", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("course api %s", e.Kind)
}

func (e *CourseLookupError) Unwrap() error {
	return e.Err
}

// appError maps the lookup failure onto the typed error carried by the service layer.
func (e *CourseLookupError) appError() *appErrors.Error {
	base := appErrors.ErrUpstreamFailure
	if e.Kind == models.CourseErrorTimeout {
		base = appErrors.ErrUpstreamTimeout
	}
	return appErrors.Wrap(e, base.Code, base.Status, e.Message)
}

// CourseService proxies the external class search API. Each lookup issues at most one GET
// bounded by its own timeout and is never retried.
type CourseService struct {
	baseURL       string
	detailTimeout time.Duration
	searchTimeout time.Duration
	cacheTTL      time.Duration
	client        HTTPDoer
	cache         *CacheService
	validator     *validator.Validate
	metrics       *MetricsService
	logger        *zap.Logger
}

// NewCourseService constructs a CourseService. A nil client falls back to an http.Client
// without its own timeout; per-call deadlines come from the request context.
func NewCourseService(cfg config.CourseConfig, client HTTPDoer, cache *CacheService, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *CourseService {
	if client == nil {
		client = &http.Client{}
	}
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	detail := cfg.DetailTimeout
	if detail <= 0 {
		detail = 15 * time.Second
	}
	search := cfg.SearchTimeout
	if search <= 0 {
		search = 20 * time.Second
	}
	return &CourseService{
		baseURL:       cfg.BaseURL,
		detailTimeout: detail,
		searchTimeout: search,
		cacheTTL:      cfg.CacheTTL,
		client:        client,
		cache:         cache,
		validator:     validate,
		metrics:       metrics,
		logger:        logger,
	}
}

// GetDetails returns the first class matching term and class number, pretty-printed.
// A search that matches nothing is a normal result with Found set to false.
func (s *CourseService) GetDetails(ctx context.Context, req models.CourseDetailRequest) (*models.CourseDetailResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	cacheKey := fmt.Sprintf("course:detail:%s:%s", req.Term, req.ClassNumber)
	var cached models.CourseDetailResult
	if s.cache.Get(ctx, cacheKey, &cached) {
		cached.Cached = true
		return &cached, nil
	}

	query := url.Values{}
	query.Set("term", req.Term)
	query.Set("classNumber", req.ClassNumber)

	_, envelope, err := s.fetch(ctx, courseEndpointDetail, query, s.detailTimeout)
	if err != nil {
		return nil, err
	}

	result := &models.CourseDetailResult{}
	classes := envelope.ClassList()
	if len(classes) == 0 {
		result.Text = fmt.Sprintf("No class found for term=%s and classNumber=%s", req.Term, req.ClassNumber)
	} else {
		text, err := prettyJSON(classes[0])
		if err != nil {
			return nil, unknownLookupError(err).appError()
		}
		result.Found = true
		result.Class = classes[0]
		result.Text = text
	}

	s.cache.Set(ctx, cacheKey, result, s.cacheTTL)
	return result, nil
}

// Search returns the upstream envelope with data.Classes cut to CourseSearchMaxClasses
// entries and data.Count clamped to CourseSearchMaxCount. Every other field passes through.
func (s *CourseService) Search(ctx context.Context, req models.CourseSearchRequest) (*models.CourseSearchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	mode := ""
	if req.CourseOfferingMode != nil {
		mode = strconv.Itoa(*req.CourseOfferingMode)
	}
	cacheKey := fmt.Sprintf("course:search:%s:%s:%s", req.Term, strings.Join(req.Subjects, ","), mode)
	var cached models.CourseSearchResult
	if s.cache.Get(ctx, cacheKey, &cached) {
		cached.Cached = true
		return &cached, nil
	}

	query := url.Values{}
	query.Set("term", req.Term)
	for _, subject := range req.Subjects {
		query.Add("subjects", subject)
	}
	if mode != "" {
		query.Set("courseOfferingModes", mode)
	}

	body, _, err := s.fetch(ctx, courseEndpointSearch, query, s.searchTimeout)
	if err != nil {
		return nil, err
	}

	shaped, err := shapeSearchEnvelope(body)
	if err != nil {
		return nil, unknownLookupError(err).appError()
	}
	text, err := prettyJSON(shaped)
	if err != nil {
		return nil, unknownLookupError(err).appError()
	}

	result := &models.CourseSearchResult{Envelope: json.RawMessage(shaped), Text: text}
	s.cache.Set(ctx, cacheKey, result, s.cacheTTL)
	return result, nil
}

// fetch performs the single outbound GET and classifies every failure into a
// CourseLookupError wrapped in an *appErrors.Error.
func (s *CourseService) fetch(ctx context.Context, endpoint string, query url.Values, timeout time.Duration) ([]byte, *models.CourseEnvelope, error) {
	target, err := s.buildURL(query)
	if err != nil {
		return nil, nil, unknownLookupError(err).appError()
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, unknownLookupError(err).appError()
	}
	req.Header.Set("accept", "application/json")

	start := time.Now()
	body, status, err := s.do(req)
	duration := time.Since(start)

	if err != nil {
		lookupErr := classifyTransportError(ctx, err, timeout)
		s.metrics.ObserveUpstream(endpoint, string(lookupErr.Kind), duration)
		s.logFailure(endpoint, lookupErr, duration)
		return nil, nil, lookupErr.appError()
	}
	s.metrics.ObserveUpstream(endpoint, strconv.Itoa(status), duration)

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		message := gjson.GetBytes(body, "message").String()
		if !gjson.ValidBytes(body) || message == "" {
			message = fmt.Sprintf("HTTP error! status: %d", status)
		}
		lookupErr := &CourseLookupError{Kind: models.CourseErrorTransportFailure, Message: message, StatusCode: status}
		s.logFailure(endpoint, lookupErr, duration)
		return nil, nil, lookupErr.appError()
	}

	envelope, err := decodeEnvelope(body)
	if err != nil {
		lookupErr := &CourseLookupError{Kind: models.CourseErrorUnknown, Message: "invalid JSON in course API response", StatusCode: status, Err: err}
		s.logFailure(endpoint, lookupErr, duration)
		return nil, nil, lookupErr.appError()
	}
	if envelope.IsError {
		lookupErr := &CourseLookupError{
			Kind:       models.CourseErrorApplicationFailure,
			Message:    envelope.MessageOr(fallbackApplicationMessage),
			StatusCode: envelope.StatusCode,
		}
		s.logFailure(endpoint, lookupErr, duration)
		return nil, nil, lookupErr.appError()
	}

	s.logger.Debug("course api request",
		zap.String("endpoint", endpoint),
		zap.Int("status", status),
		zap.Duration("duration", duration),
	)
	return body, envelope, nil
}

func (s *CourseService) do(req *http.Request) ([]byte, int, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCourseResponseBytes))
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func (s *CourseService) buildURL(query url.Values) (string, error) {
	base, err := url.Parse(s.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse course api url: %w", err)
	}
	merged := base.Query()
	for key, values := range query {
		merged[key] = values
	}
	base.RawQuery = merged.Encode()
	return base.String(), nil
}

func (s *CourseService) logFailure(endpoint string, err *CourseLookupError, duration time.Duration) {
	s.logger.Warn("course api request failed",
		zap.String("endpoint", endpoint),
		zap.String("kind", string(err.Kind)),
		zap.Int("status", err.StatusCode),
		zap.Duration("duration", duration),
		zap.String("message", err.Message),
		zap.Error(err.Err),
	)
}

// classifyTransportError attributes a failed call. A deadline or cancellation on parent
// belongs to the caller, not to the per-call timeout.
func classifyTransportError(parent context.Context, err error, timeout time.Duration) *CourseLookupError {
	switch parentErr := parent.Err(); {
	case errors.Is(parentErr, context.DeadlineExceeded):
		return &CourseLookupError{
			Kind:    models.CourseErrorTimeout,
			Message: "Request deadline exceeded before the course API responded",
			Err:     err,
		}
	case errors.Is(parentErr, context.Canceled):
		return &CourseLookupError{Kind: models.CourseErrorUnknown, Message: "Request was cancelled", Err: err}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &CourseLookupError{
			Kind:    models.CourseErrorTimeout,
			Message: fmt.Sprintf("Request timed out after %s seconds", strconv.FormatFloat(timeout.Seconds(), 'f', -1, 64)),
			Err:     err,
		}
	}
	return unknownLookupError(err)
}

func unknownLookupError(err error) *CourseLookupError {
	message := fallbackUnknownMessage
	if err != nil && err.Error() != "" {
		message = err.Error()
	}
	return &CourseLookupError{Kind: models.CourseErrorUnknown, Message: message, Err: err}
}

// decodeEnvelope reads the fields the proxy inspects. Loosely typed values such as a string
// statusCode or a fractional Count are tolerated; only a body that is not a JSON object fails.
func decodeEnvelope(body []byte) (*models.CourseEnvelope, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("malformed JSON body")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, fmt.Errorf("expected a JSON object, got %s", root.Type)
	}

	envelope := &models.CourseEnvelope{
		IsError:    root.Get("isError").Bool(),
		StatusCode: int(root.Get("statusCode").Int()),
	}
	if message := root.Get("message"); message.Type == gjson.String {
		text := message.String()
		envelope.Message = &text
	}
	data := root.Get("data")
	if data.IsObject() {
		envelope.Data = &models.CourseData{Count: int(data.Get("Count").Int())}
		for _, class := range data.Get("Classes").Array() {
			envelope.Data.Classes = append(envelope.Data.Classes, json.RawMessage(class.Raw))
		}
	}
	return envelope, nil
}

// shapeSearchEnvelope edits data.Classes and data.Count in place. An envelope without a
// data block is returned unchanged.
func shapeSearchEnvelope(body []byte) ([]byte, error) {
	data := gjson.GetBytes(body, "data")
	if !data.Exists() || data.Type == gjson.Null {
		return body, nil
	}

	var err error
	classes := gjson.GetBytes(body, "data.Classes")
	if classes.IsArray() {
		items := classes.Array()
		if len(items) > models.CourseSearchMaxClasses {
			raw := make([]string, 0, models.CourseSearchMaxClasses)
			for _, item := range items[:models.CourseSearchMaxClasses] {
				raw = append(raw, item.Raw)
			}
			body, err = sjson.SetRawBytes(body, "data.Classes", []byte("["+strings.Join(raw, ",")+"]"))
			if err != nil {
				return nil, fmt.Errorf("truncate classes: %w", err)
			}
		}
	}

	count := gjson.GetBytes(body, "data.Count")
	if (count.Type == gjson.Number || count.Type == gjson.String) && count.Float() > models.CourseSearchMaxCount {
		body, err = sjson.SetBytes(body, "data.Count", models.CourseSearchMaxCount)
		if err != nil {
			return nil, fmt.Errorf("clamp count: %w", err)
		}
	}
	return body, nil
}

func prettyJSON(raw []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", err
	}
	return buf.String(), nil
}
