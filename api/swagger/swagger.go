package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Commission API",
        "description": "Commission lifecycle, queue admission and milestone payments",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Board", "description": "Public request board and bids"},
        {"name": "Commissions", "description": "Commission lifecycle"},
        {"name": "Milestones", "description": "Milestones and approval checkpoints"},
        {"name": "Queue", "description": "Per-artist queue and settings"},
        {"name": "Uploads", "description": "Image uploads"}
    ],
    "paths": {
        "/requests": {
            "get": {
                "tags": ["Board"],
                "summary": "List commission requests",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "client_id", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Board"],
                "summary": "Post a commission request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRequestInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}": {
            "get": {
                "tags": ["Board"],
                "summary": "Get a request with its bids",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Board"],
                "summary": "Withdraw an open request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/requests/{id}/bids": {
            "post": {
                "tags": ["Board"],
                "summary": "Place a bid on an open request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PlaceBidInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate pending bid", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bids/{id}/accept": {
            "post": {
                "tags": ["Board"],
                "summary": "Accept a bid and queue the commission",
                "description": "Creates the commission with its milestone plan and admits it into the artist's queue. An empty body uses a single full-price milestone.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/AcceptBidInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Queue full", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/commissions": {
            "get": {
                "tags": ["Commissions"],
                "summary": "List commissions",
                "parameters": [
                    {"name": "artist_id", "in": "query", "type": "string"},
                    {"name": "client_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/commissions/{id}": {
            "get": {
                "tags": ["Commissions"],
                "summary": "Get a commission",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/commissions/{id}/start": {
            "post": {
                "tags": ["Commissions"],
                "summary": "Start an active pending commission",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not startable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/commissions/{id}/can-cancel": {
            "get": {
                "tags": ["Commissions"],
                "summary": "Check whether a commission can be cancelled",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/commissions/{id}/cancel": {
            "post": {
                "tags": ["Commissions"],
                "summary": "Cancel a commission",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/CancelCommissionInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Cancellation blocked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/commissions/{id}/history": {
            "get": {
                "tags": ["Commissions"],
                "summary": "Get the commission's state transition log",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/commissions/{id}/receipt": {
            "get": {
                "tags": ["Commissions"],
                "summary": "Download the commission receipt as PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF document"}
                }
            }
        },
        "/commissions/{id}/milestones": {
            "get": {
                "tags": ["Milestones"],
                "summary": "List a commission's milestones",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/milestones/{id}/complete": {
            "post": {
                "tags": ["Milestones"],
                "summary": "Submit completed work for a milestone",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitCheckpointInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Locked or duplicate submission", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/milestones/{id}/checkpoints": {
            "get": {
                "tags": ["Milestones"],
                "summary": "List a milestone's approval checkpoints",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/checkpoints/{id}/decide": {
            "post": {
                "tags": ["Milestones"],
                "summary": "Approve or reject a pending checkpoint",
                "description": "Approval captures the milestone payment and unlocks the next milestone, or completes the commission after the last one.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DecideCheckpointInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already decided", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Payment capture failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/artists/{id}/queue": {
            "get": {
                "tags": ["Queue"],
                "summary": "Get an artist's queue snapshot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/artists/{id}/queue-settings": {
            "get": {
                "tags": ["Queue"],
                "summary": "Get an artist's queue settings",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/queue-settings": {
            "put": {
                "tags": ["Queue"],
                "summary": "Update the caller's queue settings",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateQueueSettingsInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/queue-roster": {
            "get": {
                "tags": ["Queue"],
                "summary": "Download the caller's queue roster as CSV",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV document"}
                }
            }
        },
        "/uploads": {
            "post": {
                "tags": ["Uploads"],
                "summary": "Upload a reference or checkpoint image",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateRequestInput": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "budget_min": {"type": "number"},
                "budget_max": {"type": "number"},
                "preferred_styles": {"type": "array", "items": {"type": "string"}},
                "reference_images": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["title", "description", "reference_images"]
        },
        "PlaceBidInput": {
            "type": "object",
            "properties": {
                "amount": {"type": "number"},
                "estimated_delivery_days": {"type": "integer"},
                "message": {"type": "string"}
            },
            "required": ["amount"]
        },
        "AcceptBidInput": {
            "type": "object",
            "properties": {
                "milestones": {"type": "array", "items": {"$ref": "#/definitions/MilestonePlan"}}
            }
        },
        "MilestonePlan": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "amount": {"type": "number"}
            },
            "required": ["title", "amount"]
        },
        "SubmitCheckpointInput": {
            "type": "object",
            "properties": {
                "image_url": {"type": "string"},
                "additional_images": {"type": "array", "items": {"type": "string"}},
                "notes": {"type": "string"}
            },
            "required": ["image_url"]
        },
        "DecideCheckpointInput": {
            "type": "object",
            "properties": {
                "approve": {"type": "boolean"},
                "notes": {"type": "string"}
            },
            "required": ["approve"]
        },
        "CancelCommissionInput": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "UpdateQueueSettingsInput": {
            "type": "object",
            "properties": {
                "max_queue_slots": {"type": "integer"},
                "allow_waitlist": {"type": "boolean"},
                "auto_promote_waitlist": {"type": "boolean"},
                "is_open": {"type": "boolean"}
            },
            "required": ["max_queue_slots"]
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
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
