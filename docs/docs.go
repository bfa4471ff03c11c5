// Package docs registers the Swagger document served under /docs. The
// document is kept by hand in step with the handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/orders": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Place an order",
                "parameters": [
                    {
                        "description": "Order lines",
                        "name": "order",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/http.createOrderReq"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/http.OrderResp"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            },
            "get": {
                "description": "Customers see their own orders. Admins see every order and may filter by customer.",
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "List orders, newest first",
                "parameters": [
                    {"type": "string", "description": "Order status", "name": "status", "in": "query"},
                    {"type": "integer", "description": "Customer id (admin)", "name": "customer_id", "in": "query"},
                    {"type": "integer", "description": "Page size", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Rows to skip", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/http.OrderResp"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            }
        },
        "/api/orders/status/{status}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "List orders in a status (admin)",
                "parameters": [
                    {"type": "string", "description": "Order status", "name": "status", "in": "path", "required": true},
                    {"type": "integer", "description": "Page size", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Rows to skip", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/http.OrderResp"}}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            }
        },
        "/api/orders/{ref}/confirm": {
            "post": {
                "description": "Re-reserves stock for a fully paid order whose confirmation was blocked.",
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Retry confirmation of a paid order (admin)",
                "parameters": [
                    {"type": "string", "description": "Order id or number", "name": "ref", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.OrderResp"}},
                    "409": {"description": "Not paid in full or still out of stock", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            }
        },
        "/api/orders/{ref}/payments": {
            "post": {
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Open a hosted checkout for the outstanding amount",
                "parameters": [
                    {"type": "string", "description": "Order id or number", "name": "ref", "in": "path", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/http.checkoutResp"}},
                    "409": {"description": "Order already paid or a checkout is already open", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "502": {"description": "Gateway unavailable", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            }
        },
        "/api/orders/{ref}/status": {
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["orders"],
                "summary": "Move an order along fulfilment (admin)",
                "parameters": [
                    {"type": "string", "description": "Order id or number", "name": "ref", "in": "path", "required": true},
                    {
                        "description": "Target status",
                        "name": "status",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/http.updateStatusReq"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.OrderResp"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            }
        },
        "/webhooks/gateway/payment": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["webhooks"],
                "summary": "Gateway payment notification",
                "parameters": [
                    {"type": "string", "description": "hex HMAC-SHA256 of the body", "name": "Chapa-Signature", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.webhookResp"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.errorResponse"}},
                    "500": {"description": "Gateway should retry", "schema": {"$ref": "#/definitions/http.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "http.OrderItemResp": {
            "type": "object",
            "properties": {
                "product_id": {"type": "integer"},
                "product_name": {"type": "string"},
                "serial_number": {"type": "string"},
                "quantity": {"type": "integer"},
                "unit_price": {"type": "number"},
                "total_price": {"type": "number"}
            }
        },
        "http.OrderResp": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "order_number": {"type": "string"},
                "customer_id": {"type": "integer"},
                "status": {"type": "string"},
                "subtotal": {"type": "number"},
                "vat_amount": {"type": "number"},
                "total_amount": {"type": "number"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/http.OrderItemResp"}},
                "shipping_address": {"type": "string"},
                "notes": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "http.checkoutResp": {
            "type": "object",
            "properties": {
                "payment_reference": {"type": "string"},
                "checkout_url": {"type": "string"}
            }
        },
        "http.createOrderReq": {
            "type": "object",
            "required": ["items"],
            "properties": {
                "customer_id": {"type": "integer"},
                "items": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "required": ["product_id", "quantity"],
                        "properties": {
                            "product_id": {"type": "integer"},
                            "quantity": {"type": "integer"}
                        }
                    }
                },
                "shipping_address": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "http.errorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "field": {"type": "string"},
                "product_id": {"type": "integer"}
            }
        },
        "http.updateStatusReq": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string"}
            }
        },
        "http.webhookResp": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "outcome": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Order & Payment API",
	Description:      "Orders, hosted checkout and gateway webhook reconciliation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
