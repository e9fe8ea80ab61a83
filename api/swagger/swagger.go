package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Cohort Portal API",
        "description": "Checkout, payment reconciliation and student portal for Techne Institute cohorts",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "https",
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Checkout", "description": "Hosted Stripe checkout"},
        {"name": "Webhooks", "description": "Payment provider deliveries and their audit log"},
        {"name": "Offers", "description": "Cohort catalogue"},
        {"name": "Enrollments", "description": "Student seats and rosters"},
        {"name": "Authentication", "description": "Magic-link sign-in"}
    ],
    "paths": {
        "/checkout": {
            "post": {
                "tags": ["Checkout"],
                "summary": "Start checkout",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CheckoutRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CheckoutResponse"}},
                    "400": {"description": "Enrollment closed", "schema": {"$ref": "#/definitions/PlainError"}},
                    "404": {"description": "Unknown cohort", "schema": {"$ref": "#/definitions/PlainError"}},
                    "500": {"description": "Provider failure", "schema": {"$ref": "#/definitions/PlainError"}}
                }
            }
        },
        "/checkout/session": {
            "get": {
                "tags": ["Checkout"],
                "summary": "Checkout session summary",
                "parameters": [
                    {"name": "session_id", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/webhooks/stripe": {
            "post": {
                "tags": ["Webhooks"],
                "summary": "Receive Stripe webhook",
                "parameters": [
                    {"name": "Stripe-Signature", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Received"},
                    "400": {"description": "Invalid signature", "schema": {"$ref": "#/definitions/PlainError"}},
                    "500": {"description": "Processing failed, redeliver", "schema": {"$ref": "#/definitions/PlainError"}}
                }
            }
        },
        "/offers": {
            "get": {
                "tags": ["Offers"],
                "summary": "List offers",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/offers/{slug}": {
            "get": {
                "tags": ["Offers"],
                "summary": "Get offer by slug",
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/magic-link": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Request sign-in link",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MagicLinkRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/callback": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Exchange sign-in link",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"},
                    {"name": "next", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Link expired, invalid or used", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Sign out",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/me/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List my enrollments",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "offerId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/enrollments/export": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Export roster",
                "produces": ["text/csv", "application/pdf"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "offerId", "in": "query", "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Roster file", "schema": {"type": "file"}}
                }
            }
        },
        "/admin/webhook-events": {
            "get": {
                "tags": ["Webhooks"],
                "summary": "List webhook deliveries",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "pending", "in": "query", "type": "boolean"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/metrics": {
            "get": {
                "summary": "Portal counters",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CheckoutRequest": {
            "type": "object",
            "required": ["cohortSlug"],
            "properties": {
                "cohortSlug": {"type": "string"}
            }
        },
        "CheckoutResponse": {
            "type": "object",
            "properties": {
                "url": {"type": "string"}
            }
        },
        "MagicLinkRequest": {
            "type": "object",
            "required": ["email"],
            "properties": {
                "email": {"type": "string"},
                "next": {"type": "string"}
            }
        },
        "PlainError": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
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
