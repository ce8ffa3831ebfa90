package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "FieldForce Attendance API",
        "description": "Attendance determination and approval workflow engine for field teams",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Attendance", "description": "Daily check events and classified records"},
        {"name": "Approval", "description": "Delegate confirmation and admin approval"},
        {"name": "Travel", "description": "Field travel requests and decisions"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/attendance/check-in": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Record a check-in and classify the day",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CheckInRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure"},
                    "409": {"description": "Record approved and locked"}
                }
            }
        },
        "/attendance/check-out": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Record a check-out and re-classify the day",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CheckOutRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No record for date"},
                    "409": {"description": "Record approved and locked"}
                }
            }
        },
        "/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List attendance records",
                "parameters": [
                    {"name": "employeeId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "unapproved", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/records/{employeeId}": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Get the record for an employee and date",
                "parameters": [
                    {"name": "employeeId", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/attendance/records/{employeeId}/history": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Audit trail for a daily record",
                "parameters": [
                    {"name": "employeeId", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/records/{employeeId}/summary": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Aggregate an employee's attendance over a range",
                "parameters": [
                    {"name": "employeeId", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "required": true, "type": "string"},
                    {"name": "to", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/records/{employeeId}/leaves": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Approved leaves overlapping a range",
                "parameters": [
                    {"name": "employeeId", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "required": true, "type": "string"},
                    {"name": "to", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/sweep": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Insert not_marked records for employees without one on the date",
                "parameters": [
                    {"name": "date", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/confirm": {
            "post": {
                "tags": ["Approval"],
                "summary": "Delegate-confirm a daily record",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordKeyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No record for date"}
                }
            }
        },
        "/attendance/approve": {
            "post": {
                "tags": ["Approval"],
                "summary": "Admin-approve a daily record, locking it",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApproveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Record not delegate-confirmed"}
                }
            }
        },
        "/attendance/approve/bulk": {
            "post": {
                "tags": ["Approval"],
                "summary": "Approve every unapproved record in a range",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkApproveRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-record outcomes", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payroll/close": {
            "post": {
                "tags": ["Approval"],
                "summary": "Close a payroll cycle: normalize, approve, export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkApproveRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-record outcomes", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/travel": {
            "get": {
                "tags": ["Travel"],
                "summary": "List travel requests",
                "parameters": [
                    {"name": "employeeId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Travel"],
                "summary": "Submit a travel request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitTravelRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure"}
                }
            }
        },
        "/travel/{id}": {
            "get": {
                "tags": ["Travel"],
                "summary": "Get a travel request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/travel/{id}/decide": {
            "post": {
                "tags": ["Travel"],
                "summary": "Approve or reject a pending travel request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecideTravelRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already decided"}
                }
            }
        }
    },
    "definitions": {
        "CheckInRequest": {
            "type": "object",
            "required": ["employee_id", "date", "time", "lat", "lng"],
            "properties": {
                "employee_id": {"type": "string"},
                "date": {"type": "string", "example": "2026-08-01"},
                "time": {"type": "string", "example": "09:45"},
                "lat": {"type": "number"},
                "lng": {"type": "number"}
            }
        },
        "CheckOutRequest": {
            "type": "object",
            "required": ["employee_id", "date", "time"],
            "properties": {
                "employee_id": {"type": "string"},
                "date": {"type": "string", "example": "2026-08-01"},
                "time": {"type": "string", "example": "18:30"}
            }
        },
        "RecordKeyRequest": {
            "type": "object",
            "required": ["employee_id", "date"],
            "properties": {
                "employee_id": {"type": "string"},
                "date": {"type": "string"}
            }
        },
        "ApproveRequest": {
            "type": "object",
            "required": ["employee_id", "date"],
            "properties": {
                "employee_id": {"type": "string"},
                "date": {"type": "string"},
                "override": {"type": "boolean"}
            }
        },
        "BulkApproveRequest": {
            "type": "object",
            "required": ["from", "to"],
            "properties": {
                "from": {"type": "string"},
                "to": {"type": "string"},
                "override": {"type": "boolean"}
            }
        },
        "SubmitTravelRequest": {
            "type": "object",
            "required": ["employee_id", "from_date", "to_date", "distance_km", "purpose", "justification", "contact_number"],
            "properties": {
                "employee_id": {"type": "string"},
                "from_date": {"type": "string"},
                "to_date": {"type": "string"},
                "distance_km": {"type": "number"},
                "purpose": {"type": "string"},
                "justification": {"type": "string"},
                "contact_number": {"type": "string"}
            }
        },
        "DecideTravelRequest": {
            "type": "object",
            "properties": {
                "approve": {"type": "boolean"},
                "remarks": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
