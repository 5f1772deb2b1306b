package main

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/channels/search": {
            "get": {
                "summary": "Search channels by name",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "q", "in": "query", "required": true},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "matching channels"}, "400": {"description": "invalid query"}}
            }
        },
        "/channels/{id}": {
            "get": {
                "summary": "Channel statistics, niche and subscriber tier",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "channel info"}, "404": {"description": "unknown channel"}}
            }
        },
        "/channels/{id}/competitors": {
            "get": {
                "summary": "Channels in the same niche",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "competitor channels"}}
            }
        },
        "/analyze": {
            "post": {
                "summary": "Rank a channel's videos and upload time slots",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AnalyzeRequest"}}],
                "responses": {
                    "200": {"description": "analysis report"},
                    "400": {"description": "invalid request"},
                    "422": {"description": "weights do not match the criteria"},
                    "429": {"description": "rate or quota limit reached"},
                    "503": {"description": "YouTube API key not configured"}
                }
            }
        },
        "/export": {
            "post": {
                "summary": "Run an analysis and download the ranking",
                "parameters": [
                    {"type": "string", "name": "format", "in": "query", "enum": ["xlsx", "csv"]},
                    {"type": "string", "name": "pipeline", "in": "query", "enum": ["video", "time_slot"]},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AnalyzeRequest"}}
                ],
                "responses": {"200": {"description": "spreadsheet file"}}
            }
        },
        "/rank": {
            "post": {
                "summary": "Score a caller-supplied decision matrix",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RankRequest"}}],
                "responses": {"200": {"description": "ranking"}, "422": {"description": "invalid matrix or weights"}}
            }
        },
        "/weights/validate": {
            "post": {
                "summary": "Check that weights lie in [0,1] and sum to 1",
                "parameters": [
                    {"type": "string", "name": "pipeline", "in": "query", "enum": ["video", "time_slot"]},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/WeightsRequest"}}
                ],
                "responses": {"200": {"description": "validation result"}}
            }
        },
        "/weights/profiles/{name}": {
            "get": {
                "summary": "Load a named weight profile",
                "parameters": [{"type": "string", "name": "name", "in": "path", "required": true}],
                "responses": {"200": {"description": "profile"}}
            }
        },
        "/quota": {
            "get": {"summary": "YouTube Data API units used today", "responses": {"200": {"description": "quota usage"}}}
        },
        "/youtube/key": {
            "put": {
                "summary": "Replace the YouTube API key",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"type": "object", "properties": {"api_key": {"type": "string"}}}}],
                "responses": {"200": {"description": "key replaced"}}
            }
        }
    },
    "definitions": {
        "AnalyzeRequest": {
            "type": "object",
            "required": ["channel_id"],
            "properties": {
                "channel_id": {"type": "string"},
                "competitor_ids": {"type": "array", "items": {"type": "string"}},
                "auto_competitor": {"type": "boolean"},
                "video_limit": {"type": "integer"},
                "video_weights": {"type": "object", "additionalProperties": {"type": "number"}},
                "slot_weights": {"type": "object", "additionalProperties": {"type": "number"}},
                "weight_profile": {"type": "string"},
                "year": {"type": "integer"},
                "min_views": {"type": "integer"}
            }
        },
        "RankRequest": {
            "type": "object",
            "required": ["criteria", "weights"],
            "properties": {
                "criteria": {"type": "array", "items": {"type": "object", "properties": {"name": {"type": "string"}, "polarity": {"type": "string", "enum": ["benefit", "cost"]}}}},
                "alternatives": {"type": "array", "items": {"type": "object", "properties": {"id": {"type": "string"}, "label": {"type": "string"}, "values": {"type": "object", "additionalProperties": {"type": "number"}}}}},
                "weights": {"type": "object", "additionalProperties": {"type": "number"}}
            }
        },
        "WeightsRequest": {
            "type": "object",
            "required": ["weights"],
            "properties": {"weights": {"type": "object", "additionalProperties": {"type": "number"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          serviceVersion,
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "tube-o-meter API",
	Description:      "SAW ranking of YouTube videos and upload time slots.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
