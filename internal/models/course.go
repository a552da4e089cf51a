package models

import "encoding/json"

// CourseErrorKind is the closed set of failure classes produced by the outbound class
// search call.
type CourseErrorKind string

const (
	CourseErrorTimeout            CourseErrorKind = "timeout"
	CourseErrorTransportFailure   CourseErrorKind = "transport_failure"
	CourseErrorApplicationFailure CourseErrorKind = "application_failure"
	CourseErrorUnknown            CourseErrorKind = "unknown"
)

// Response shaping limits for search results. The class list is cut to
// CourseSearchMaxClasses while the count field is clamped to CourseSearchMaxCount.
const (
	CourseSearchMaxClasses = 7
	CourseSearchMaxCount   = 20
)

// CourseDetailRequest looks up a single class offering.
type CourseDetailRequest struct {
	Term        string `json:"term" validate:"required,digits"`
	ClassNumber string `json:"classNumber" validate:"required,digits"`
}

// CourseSearchRequest searches class offerings by subject codes.
type CourseSearchRequest struct {
	Term               string   `json:"term" validate:"required,digits"`
	Subjects           []string `json:"subjects" validate:"required,min=1,dive,subjectcode"`
	CourseOfferingMode *int     `json:"courseOfferingMode,omitempty" validate:"omitempty,oneof=1 2 3"`
}

// CourseEnvelope is the top-level response of the external class search API. Only the
// fields the proxy inspects are modelled; the raw body is kept for pass-through.
type CourseEnvelope struct {
	IsError    bool        `json:"isError"`
	Message    *string     `json:"message"`
	StatusCode int         `json:"statusCode"`
	Data       *CourseData `json:"data,omitempty"`
}

// CourseData holds the matched class records. Records are opaque to the proxy.
type CourseData struct {
	Classes []json.RawMessage `json:"Classes"`
	Count   int               `json:"Count"`
}

// ClassList returns the matched records, treating a missing data block as empty.
func (e *CourseEnvelope) ClassList() []json.RawMessage {
	if e == nil || e.Data == nil {
		return nil
	}
	return e.Data.Classes
}

// MessageOr returns the envelope message or fallback when it is absent or blank.
func (e *CourseEnvelope) MessageOr(fallback string) string {
	if e == nil || e.Message == nil || *e.Message == "" {
		return fallback
	}
	return *e.Message
}

// CourseDetailResult is the outcome of a detail lookup. Found is false when the search
// succeeded but matched nothing; Text always holds the caller-facing rendering.
type CourseDetailResult struct {
	Found  bool            `json:"found"`
	Class  json.RawMessage `json:"class,omitempty"`
	Text   string          `json:"text"`
	Cached bool            `json:"-"`
}

// CourseSearchResult carries the shaped envelope returned by a search.
type CourseSearchResult struct {
	Envelope json.RawMessage `json:"envelope"`
	Text     string          `json:"text"`
	Cached   bool            `json:"-"`
}
