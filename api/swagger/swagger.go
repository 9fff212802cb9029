package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Learning Analytics API",
        "description": "Read-only analytics over learner, course and quiz activity",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {
            "name": "Analytics",
            "description": "Learner and population analytics"
        },
        {
            "name": "Content",
            "description": "Course listings"
        },
        {
            "name": "System",
            "description": "Health and metrics"
        }
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": [
                    "System"
                ],
                "summary": "Liveness check",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/ready": {
            "get": {
                "tags": [
                    "System"
                ],
                "summary": "Readiness check",
                "responses": {
                    "200": {
                        "description": "Ready"
                    },
                    "503": {
                        "description": "A dependency is unavailable"
                    }
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": [
                    "System"
                ],
                "summary": "Prometheus metrics",
                "produces": [
                    "text/plain"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/api/v1/groups": {
            "get": {
                "tags": [
                    "Content"
                ],
                "summary": "List courses",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "403": {
                        "description": "Forbidden"
                    },
                    "500": {
                        "description": "Analytics failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/analytics/users/{id}/stats": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Per-user learning statistics",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "403": {
                        "description": "Forbidden"
                    },
                    "500": {
                        "description": "Analytics failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "User not found"
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/api/v1/analytics/users/{id}/timeline": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Most recent completions of a user",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "403": {
                        "description": "Forbidden"
                    },
                    "500": {
                        "description": "Analytics failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "User not found"
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/api/v1/analytics/gender-distribution": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Gender distribution",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "403": {
                        "description": "Forbidden"
                    },
                    "500": {
                        "description": "Analytics failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "cohort",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "from",
                        "in": "query",
                        "type": "string",
                        "description": "RFC3339 or YYYY-MM-DD, applied to registration time"
                    },
                    {
                        "name": "to",
                        "in": "query",
                        "type": "string",
                        "description": "RFC3339 or YYYY-MM-DD, inclusive"
                    },
                    {
                        "name": "active",
                        "in": "query",
                        "type": "boolean"
                    }
                ]
            }
        },
        "/api/v1/analytics/age-segmentation": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Age segmentation",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "403": {
                        "description": "Forbidden"
                    },
                    "500": {
                        "description": "Analytics failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "cohort",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "from",
                        "in": "query",
                        "type": "string",
                        "description": "RFC3339 or YYYY-MM-DD, applied to registration time"
                    },
                    {
                        "name": "to",
                        "in": "query",
                        "type": "string",
                        "description": "RFC3339 or YYYY-MM-DD, inclusive"
                    },
                    {
                        "name": "active",
                        "in": "query",
                        "type": "boolean"
                    }
                ]
            }
        },
        "/api/v1/analytics/geographical-distribution": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Geographical distribution",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "403": {
                        "description": "Forbidden"
                    },
                    "500": {
                        "description": "Analytics failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "cohort",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "from",
                        "in": "query",
                        "type": "string",
                        "description": "RFC3339 or YYYY-MM-DD, applied to registration time"
                    },
                    {
                        "name": "to",
                        "in": "query",
                        "type": "string",
                        "description": "RFC3339 or YYYY-MM-DD, inclusive"
                    },
                    {
                        "name": "active",
                        "in": "query",
                        "type": "boolean"
                    }
                ]
            }
        },
        "/api/v1/analytics/engagement-analysis": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Engagement time series",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "403": {
                        "description": "Forbidden"
                    },
                    "500": {
                        "description": "Analytics failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "range",
                        "in": "query",
                        "type": "string",
                        "enum": [
                            "daily",
                            "weekly",
                            "monthly"
                        ],
                        "default": "monthly"
                    },
                    {
                        "name": "cohort",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "from",
                        "in": "query",
                        "type": "string",
                        "description": "RFC3339 or YYYY-MM-DD, applied to registration time"
                    },
                    {
                        "name": "to",
                        "in": "query",
                        "type": "string",
                        "description": "RFC3339 or YYYY-MM-DD, inclusive"
                    },
                    {
                        "name": "active",
                        "in": "query",
                        "type": "boolean"
                    }
                ]
            }
        },
        "/api/v1/analytics/performance-metrics": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Platform performance metrics",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "403": {
                        "description": "Forbidden"
                    },
                    "500": {
                        "description": "Analytics failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "cohort",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "from",
                        "in": "query",
                        "type": "string",
                        "description": "RFC3339 or YYYY-MM-DD, applied to registration time"
                    },
                    {
                        "name": "to",
                        "in": "query",
                        "type": "string",
                        "description": "RFC3339 or YYYY-MM-DD, inclusive"
                    },
                    {
                        "name": "active",
                        "in": "query",
                        "type": "boolean"
                    }
                ]
            }
        },
        "/api/v1/analytics/cohort-insights": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Cohort engagement insights",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "403": {
                        "description": "Forbidden"
                    },
                    "500": {
                        "description": "Analytics failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "cohort",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "from",
                        "in": "query",
                        "type": "string",
                        "description": "RFC3339 or YYYY-MM-DD, applied to registration time"
                    },
                    {
                        "name": "to",
                        "in": "query",
                        "type": "string",
                        "description": "RFC3339 or YYYY-MM-DD, inclusive"
                    },
                    {
                        "name": "active",
                        "in": "query",
                        "type": "boolean"
                    }
                ]
            }
        },
        "/api/v1/analytics/leaderboard": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Learner leaderboard",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "403": {
                        "description": "Forbidden"
                    },
                    "500": {
                        "description": "Analytics failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "cohort",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "from",
                        "in": "query",
                        "type": "string",
                        "description": "RFC3339 or YYYY-MM-DD, applied to registration time"
                    },
                    {
                        "name": "to",
                        "in": "query",
                        "type": "string",
                        "description": "RFC3339 or YYYY-MM-DD, inclusive"
                    },
                    {
                        "name": "active",
                        "in": "query",
                        "type": "boolean"
                    }
                ]
            }
        },
        "/api/v1/analytics/drop-off-tracking": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Drop-off tracking",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "403": {
                        "description": "Forbidden"
                    },
                    "500": {
                        "description": "Analytics failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "detailed",
                        "in": "query",
                        "type": "boolean"
                    },
                    {
                        "name": "cohort",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "from",
                        "in": "query",
                        "type": "string",
                        "description": "RFC3339 or YYYY-MM-DD, applied to registration time"
                    },
                    {
                        "name": "to",
                        "in": "query",
                        "type": "string",
                        "description": "RFC3339 or YYYY-MM-DD, inclusive"
                    },
                    {
                        "name": "active",
                        "in": "query",
                        "type": "boolean"
                    }
                ]
            }
        },
        "/api/v1/analytics/system": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Analytics runtime metrics",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "403": {
                        "description": "Forbidden"
                    },
                    "500": {
                        "description": "Analytics failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/analytics/export": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Download an analytics report",
                "produces": [
                    "text/csv",
                    "application/pdf"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Report file",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "403": {
                        "description": "Forbidden"
                    },
                    "500": {
                        "description": "Analytics failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "report",
                        "in": "query",
                        "required": true,
                        "type": "string",
                        "enum": [
                            "leaderboard",
                            "cohorts",
                            "age",
                            "geography",
                            "performance",
                            "dropoff"
                        ]
                    },
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "enum": [
                            "csv",
                            "pdf"
                        ],
                        "default": "csv"
                    },
                    {
                        "name": "cohort",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "from",
                        "in": "query",
                        "type": "string",
                        "description": "RFC3339 or YYYY-MM-DD, applied to registration time"
                    },
                    {
                        "name": "to",
                        "in": "query",
                        "type": "string",
                        "description": "RFC3339 or YYYY-MM-DD, inclusive"
                    },
                    {
                        "name": "active",
                        "in": "query",
                        "type": "boolean"
                    }
                ]
            }
        },
        "/api/v1/analytics/cache": {
            "delete": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Purge cached analytics",
                "produces": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized"
                    },
                    "403": {
                        "description": "Forbidden"
                    },
                    "500": {
                        "description": "Analytics failed",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "meta": {
                    "type": "object"
                }
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
