package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus Tools API",
        "description": "Leave balance and class search tools, served over MCP with a REST mirror.",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "in": "header", "name": "X-API-Key"},
        "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "tags": [
        {"name": "Leave", "description": "Employee leave balances and history"},
        {"name": "Courses", "description": "Proxy to the external class search API"}
    ],
    "paths": {
        "/employees/{id}/leave-balance": {
            "get": {
                "tags": ["Leave"],
                "summary": "Get leave balance",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LeaveEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/employees/{id}/leaves": {
            "post": {
                "tags": ["Leave"],
                "summary": "Apply leave",
                "description": "Books every date or none. An empty list succeeds without changing the balance.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApplyLeavePayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LeaveEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/employees/{id}/leave-history": {
            "get": {
                "tags": ["Leave"],
                "summary": "Get leave history",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LeaveEnvelope"}}
                }
            }
        },
        "/employees/{id}/leave-history/export": {
            "get": {
                "tags": ["Leave"],
                "summary": "Export leave history",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "File download", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown employee", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses": {
            "get": {
                "tags": ["Courses"],
                "summary": "Search classes",
                "description": "Returns the upstream envelope with at most 7 classes and a count clamped to 20.",
                "parameters": [
                    {"name": "term", "in": "query", "required": true, "type": "string", "pattern": "^[0-9]+$"},
                    {"name": "subjects", "in": "query", "required": true, "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"name": "courseOfferingMode", "in": "query", "type": "integer", "enum": [1, 2, 3]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Upstream failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "504": {"description": "Upstream timeout", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{term}/{classNumber}": {
            "get": {
                "tags": ["Courses"],
                "summary": "Get class details",
                "parameters": [
                    {"name": "term", "in": "path", "required": true, "type": "string"},
                    {"name": "classNumber", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Upstream failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "504": {"description": "Upstream timeout", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ApplyLeavePayload": {
            "type": "object",
            "required": ["leave_dates"],
            "properties": {
                "leave_dates": {"type": "array", "items": {"type": "string"}}
            }
        },
        "LeaveOutcome": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["ok", "not_found", "insufficient_balance", "no_history"]},
                "message": {"type": "string"},
                "employee_id": {"type": "string"},
                "balance": {"type": "integer"},
                "requested": {"type": "integer"},
                "history": {"type": "array", "items": {"type": "string"}}
            }
        },
        "LeaveEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/LeaveOutcome"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
