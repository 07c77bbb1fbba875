package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Blood Bank API",
        "description": "Donation lifecycle, inventory and allocation service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Staff login"},
        {"name": "Donations", "description": "Donation scheduling and processing"},
        {"name": "Donors", "description": "Donor registry and eligibility"},
        {"name": "Inventory", "description": "Issuable stock and expiry"},
        {"name": "Requests", "description": "Blood requests and allocation"},
        {"name": "Centers", "description": "Collection centers"},
        {"name": "Audit", "description": "Inventory audit trail"},
        {"name": "Dashboard", "description": "Stock and demand figures"},
        {"name": "Exports", "description": "CSV, PDF and XLSX exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate staff",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/donations/schedule": {
            "post": {
                "tags": ["Donations"],
                "summary": "Register a donor and schedule a donation",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ScheduleDonationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Scheduled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Donor not yet eligible", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/donations/{id}/complete": {
            "post": {
                "tags": ["Donations"],
                "summary": "Complete a donation into one inventory unit",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "required": false, "schema": {"$ref": "#/definitions/CompleteDonationRequest"}}
                ],
                "responses": {
                    "200": {"description": "Completed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already processed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/inventory": {
            "get": {
                "tags": ["Inventory"],
                "summary": "List issuable units, oldest collection first",
                "parameters": [
                    {"in": "query", "name": "bloodGroup", "type": "string"},
                    {"in": "query", "name": "componentType", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests": {
            "post": {
                "tags": ["Requests"],
                "summary": "Submit a blood request",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SubmitRequestRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/fulfill": {
            "post": {
                "tags": ["Requests"],
                "summary": "Allocate matching units to a pending request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Fulfilled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not pending, no matching stock or conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/centers": {
            "get": {
                "tags": ["Centers"],
                "summary": "List collection centers",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Centers"],
                "summary": "Create a collection center",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CreateCenterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "DonorInfo": {
            "type": "object",
            "required": ["full_name", "blood_group", "contact", "sex"],
            "properties": {
                "full_name": {"type": "string"},
                "blood_group": {"type": "string", "enum": ["A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"]},
                "contact": {"type": "string"},
                "sex": {"type": "string", "enum": ["Male", "Female"]}
            }
        },
        "ScheduleDonationRequest": {
            "type": "object",
            "required": ["donor", "center_id", "donation_date"],
            "properties": {
                "donor": {"$ref": "#/definitions/DonorInfo"},
                "center_id": {"type": "string"},
                "donation_type": {"type": "string"},
                "donation_date": {"type": "string", "format": "date"}
            }
        },
        "CompleteDonationRequest": {
            "type": "object",
            "properties": {
                "component_type": {"type": "string"}
            }
        },
        "SubmitRequestRequest": {
            "type": "object",
            "required": ["requester_name", "blood_group", "component_type", "quantity"],
            "properties": {
                "requester_name": {"type": "string"},
                "blood_group": {"type": "string"},
                "component_type": {"type": "string"},
                "quantity": {"type": "integer", "minimum": 1, "maximum": 20}
            }
        },
        "CreateCenterRequest": {
            "type": "object",
            "required": ["name", "location"],
            "properties": {
                "name": {"type": "string"},
                "location": {"type": "string"}
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
                "meta": {"type": "object"},
                "request_id": {"type": "string"}
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
