// Package docs registers the OpenAPI description of the registration API with swag
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
        "/api/submit": {
            "get": {
                "description": "List up to 200 most recent registrations, newest first",
                "produces": ["application/json"],
                "tags": ["Registration"],
                "summary": "List registrations",
                "responses": {
                    "200": {"description": "Registrations", "schema": {"$ref": "#/definitions/dto.ListSubmissionsResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            },
            "post": {
                "description": "Store a registration and notify the phone by SMS unless it was already notified",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Registration"],
                "summary": "Submit registration",
                "parameters": [
                    {
                        "description": "Registration form data",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/dto.SubmitRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "Registration stored", "schema": {"$ref": "#/definitions/dto.SubmitResponse"}},
                    "400": {"description": "Missing required fields", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/api/submit/export": {
            "get": {
                "description": "Download up to 200 most recent registrations as xlsx",
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["Registration"],
                "summary": "Export registrations",
                "responses": {
                    "200": {"description": "Excel file", "schema": {"type": "file"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.AddressDTO": {
            "type": "object",
            "properties": {
                "area": {"type": "string"},
                "district": {"type": "string"},
                "mandal": {"type": "string"}
            }
        },
        "dto.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        },
        "dto.ListSubmissionsResponse": {
            "type": "object",
            "properties": {
                "ok": {"type": "boolean"},
                "rows": {"type": "array", "items": {"$ref": "#/definitions/dto.SubmissionRow"}}
            }
        },
        "dto.SMSStatusDTO": {
            "type": "object",
            "properties": {
                "ok": {"type": "boolean"},
                "response": {},
                "sentAt": {"type": "string"}
            }
        },
        "dto.SubmissionRow": {
            "type": "object",
            "properties": {
                "address": {"$ref": "#/definitions/dto.AddressDTO"},
                "businessTitle": {"type": "string"},
                "createdAt": {"type": "string"},
                "id": {"type": "string"},
                "name": {"type": "string"},
                "phone": {"type": "string"},
                "rating": {"type": "number"},
                "regNo": {"type": "string"},
                "smsStatus": {"$ref": "#/definitions/dto.SMSStatusDTO"}
            }
        },
        "dto.SubmitAddressRequest": {
            "type": "object",
            "properties": {
                "area": {"type": "string"},
                "district": {"type": "string"},
                "mandal": {"type": "string"}
            }
        },
        "dto.SubmitRequest": {
            "type": "object",
            "required": ["businessTitle", "name", "phone"],
            "properties": {
                "address": {"$ref": "#/definitions/dto.SubmitAddressRequest"},
                "businessTitle": {"type": "string"},
                "name": {"type": "string"},
                "phone": {"type": "string"},
                "rating": {"type": "number"}
            }
        },
        "dto.SubmitResponse": {
            "type": "object",
            "properties": {
                "alreadyRegistered": {"type": "boolean"},
                "id": {"type": "string"},
                "ok": {"type": "boolean"},
                "regNo": {"type": "string"},
                "smsStatus": {"$ref": "#/definitions/dto.SMSStatusDTO"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "RBG Registration API",
	Description:      "Event registration intake with one-time SMS confirmation",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
