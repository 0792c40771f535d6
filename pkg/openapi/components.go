package openapi

import (
	"maps"
	"net/http"
	"strings"
)

// errorResponses are the shared {"error": msg} responses, keyed by status.
var errorResponses = map[int]string{
	http.StatusBadRequest:            "Invalid request",
	http.StatusNotFound:              "Resource not found",
	http.StatusRequestEntityTooLarge: "Document exceeds the upload limit",
	http.StatusUnsupportedMediaType:  "Unsupported document type",
	http.StatusUnprocessableEntity:   "Document could not be rendered",
	http.StatusServiceUnavailable:    "A required backend is not configured",
	http.StatusGatewayTimeout:        "Validation run timed out",
}

// NewComponents creates Components holding the Error schema and one
// response per shared error status.
func NewComponents() *Components {
	c := &Components{
		Schemas: map[string]*Schema{
			"Error": {
				Type:       "object",
				Properties: map[string]*Schema{"error": {Type: "string", Description: "Error message"}},
				Required:   []string{"error"},
			},
		},
		Responses: make(map[string]*Response),
	}

	for status, desc := range errorResponses {
		c.Responses[ErrorName(status)] = &Response{
			Description: desc,
			Content: map[string]*MediaType{
				"application/json": {Schema: SchemaRef("Error")},
			},
		}
	}
	return c
}

// ErrorName is the component name of the shared response for status.
func ErrorName(status int) string {
	return "Error" + strings.ReplaceAll(http.StatusText(status), " ", "")
}

// AddSchemas merges the given schemas into the component schemas.
func (c *Components) AddSchemas(schemas map[string]*Schema) {
	maps.Copy(c.Schemas, schemas)
}
