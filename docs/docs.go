// Package docs registers the OpenAPI document served at /api/swagger.
// Regenerate with: swag init -g cmd/server/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/posts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "List posts",
                "parameters": [
                    {"type": "integer", "description": "Page size (max 100); omit for every post", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Post"}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Create a post",
                "parameters": [
                    {"type": "string", "description": "Post text", "name": "content", "in": "formData"},
                    {"type": "file", "description": "Image attachment", "name": "image", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Post"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts/user/{username}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "List a user's posts",
                "parameters": [{"type": "string", "description": "Username", "name": "username", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Post"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Get a post",
                "parameters": [{"type": "integer", "description": "Post ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Post"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Delete a post with its comments and likes",
                "parameters": [{"type": "integer", "description": "Post ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.messageResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts/{id}/like": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Like or unlike a post",
                "parameters": [{"type": "integer", "description": "Post ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.messageResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/comments/post/{postId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["comments"],
                "summary": "List a post's comments",
                "parameters": [{"type": "integer", "description": "Post ID", "name": "postId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Comment"}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["comments"],
                "summary": "Comment on a post",
                "parameters": [
                    {"type": "integer", "description": "Post ID", "name": "postId", "in": "path", "required": true},
                    {"description": "Comment", "name": "request", "in": "body", "required": true, "schema": {"type": "object", "properties": {"content": {"type": "string"}}}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Comment"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/comments/{id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["comments"],
                "summary": "Delete a comment",
                "parameters": [{"type": "integer", "description": "Comment ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.messageResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/notifications": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "List the caller's notifications",
                "parameters": [{"type": "integer", "description": "Max items (default 50, max 100)", "name": "limit", "in": "query"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Notification"}}}
                }
            }
        },
        "/notifications/{id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "Delete a notification",
                "parameters": [{"type": "integer", "description": "Notification ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.messageResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/users/sync": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Sync the caller's account from their token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.User"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/users/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Get the caller's profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/users/me/features": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Evaluated feature flags for the caller",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "boolean"}}}
                }
            }
        },
        "/users/profile": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Update the caller's profile",
                "parameters": [{"description": "Fields to change", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.ProfileUpdate"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/users/profile/{username}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Get a public profile",
                "parameters": [{"type": "string", "description": "Username", "name": "username", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/users/follow/{targetId}": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Follow or unfollow a user",
                "parameters": [{"type": "integer", "description": "User to follow", "name": "targetId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.messageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"},
                "details": {"type": "string"}
            }
        },
        "models.User": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "username": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "bio": {"type": "string"},
                "location": {"type": "string"},
                "profile_picture": {"type": "string"},
                "banner_image": {"type": "string"},
                "followers": {"type": "array", "items": {"type": "integer"}},
                "following": {"type": "array", "items": {"type": "integer"}}
            }
        },
        "models.Comment": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "post_id": {"type": "integer"},
                "user_id": {"type": "integer"},
                "user": {"$ref": "#/definitions/models.User"},
                "content": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "models.Post": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "user_id": {"type": "integer"},
                "user": {"$ref": "#/definitions/models.User"},
                "content": {"type": "string"},
                "image_url": {"type": "string"},
                "like_count": {"type": "integer"},
                "comment_count": {"type": "integer"},
                "likes": {"type": "array", "items": {"type": "integer"}},
                "comments": {"type": "array", "items": {"$ref": "#/definitions/models.Comment"}},
                "created_at": {"type": "string"}
            }
        },
        "models.Notification": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "type": {"type": "string", "enum": ["follow", "like", "comment", "mention", "reply"]},
                "from_user_id": {"type": "integer"},
                "from": {"$ref": "#/definitions/models.User"},
                "to_user_id": {"type": "integer"},
                "post_id": {"type": "integer"},
                "comment_id": {"type": "integer"},
                "post": {"type": "object"},
                "comment": {"type": "object"},
                "created_at": {"type": "string"}
            }
        },
        "service.ProfileUpdate": {
            "type": "object",
            "properties": {
                "firstName": {"type": "string"},
                "lastName": {"type": "string"},
                "bio": {"type": "string"},
                "location": {"type": "string"},
                "profilePicture": {"type": "string"},
                "bannerImage": {"type": "string"}
            }
        },
        "server.messageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "liked": {"type": "boolean"},
                "following": {"type": "boolean"},
                "warnings": {"type": "array", "items": {"type": "string"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8375",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "RavenCube API",
	Description:      "Posts, comments, likes, follows and notifications",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
