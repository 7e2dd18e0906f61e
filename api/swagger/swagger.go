package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Moodle Engagement API",
        "description": "Early-warning dashboard over Moodle activity log exports",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Sessions", "description": "Uploaded activity logs"},
        {"name": "Engagement", "description": "Per-student engagement metrics"},
        {"name": "Exports", "description": "CSV and PDF downloads"},
        {"name": "Alerts", "description": "Coordinator notifications"}
    ],
    "paths": {
        "/sessions": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Upload a Moodle activity log",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "Payload too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Missing columns or no readable rows", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Session info and filter options",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Sessions"],
                "summary": "Discard an uploaded log",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/sessions/{id}/summary": {
            "get": {
                "tags": ["Engagement"],
                "summary": "Engagement table, KPIs and at-risk cards",
                "parameters": [
                    {"$ref": "#/parameters/SessionID"},
                    {"$ref": "#/parameters/Course"},
                    {"$ref": "#/parameters/Origin"},
                    {"$ref": "#/parameters/Events"},
                    {"$ref": "#/parameters/From"},
                    {"$ref": "#/parameters/To"},
                    {"$ref": "#/parameters/LookbackDays"},
                    {"$ref": "#/parameters/RiskDays"},
                    {"$ref": "#/parameters/Search"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "No data after filters", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/charts": {
            "get": {
                "tags": ["Engagement"],
                "summary": "Dashboard chart series",
                "parameters": [
                    {"$ref": "#/parameters/SessionID"},
                    {"$ref": "#/parameters/Course"},
                    {"$ref": "#/parameters/Origin"},
                    {"$ref": "#/parameters/Events"},
                    {"$ref": "#/parameters/From"},
                    {"$ref": "#/parameters/To"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/students/{name}": {
            "get": {
                "tags": ["Engagement"],
                "summary": "Drill-down for one student",
                "parameters": [
                    {"$ref": "#/parameters/SessionID"},
                    {"name": "name", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student not in the filtered set", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/summary.csv": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the summary table as CSV",
                "produces": ["text/csv"],
                "parameters": [
                    {"$ref": "#/parameters/SessionID"}
                ],
                "responses": {
                    "200": {"description": "CSV file", "schema": {"type": "file"}}
                }
            }
        },
        "/sessions/{id}/report.pdf": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the summary report as PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"$ref": "#/parameters/SessionID"}
                ],
                "responses": {
                    "200": {"description": "PDF file", "schema": {"type": "file"}}
                }
            }
        },
        "/sessions/{id}/alerts": {
            "get": {
                "tags": ["Alerts"],
                "summary": "Notification log of a session",
                "parameters": [
                    {"$ref": "#/parameters/SessionID"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Alerts"],
                "summary": "E-mail the at-risk list to a coordinator",
                "parameters": [
                    {"$ref": "#/parameters/SessionID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AlertRequest"}}
                ],
                "responses": {
                    "200": {"description": "Sent, or nothing to send", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid recipient", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Mail transport failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "parameters": {
        "SessionID": {"name": "id", "in": "path", "type": "string", "required": true},
        "Course": {"name": "course", "in": "query", "type": "string"},
        "Origin": {"name": "origin", "in": "query", "type": "string"},
        "Events": {"name": "events", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
        "From": {"name": "from", "in": "query", "type": "string", "format": "date"},
        "To": {"name": "to", "in": "query", "type": "string", "format": "date"},
        "LookbackDays": {"name": "lookback_days", "in": "query", "type": "integer", "minimum": 3, "maximum": 30},
        "RiskDays": {"name": "risk_days", "in": "query", "type": "integer", "minimum": 7, "maximum": 60},
        "Search": {"name": "search", "in": "query", "type": "string"}
    },
    "definitions": {
        "SummaryQuery": {
            "type": "object",
            "properties": {
                "course": {"type": "string"},
                "origin": {"type": "string"},
                "events": {"type": "array", "items": {"type": "string"}},
                "from": {"type": "string", "format": "date"},
                "to": {"type": "string", "format": "date"},
                "lookback_days": {"type": "integer"},
                "risk_days": {"type": "integer"},
                "search": {"type": "string"}
            }
        },
        "AlertRequest": {
            "type": "object",
            "required": ["coordinator_email"],
            "properties": {
                "coordinator_email": {"type": "string", "format": "email"},
                "filters": {"$ref": "#/definitions/SummaryQuery"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
