package api

import (
	"net/http"

	"github.com/JaimeStill/attest/pkg/openapi"
	"github.com/JaimeStill/attest/pkg/routes"
)

const apiTitle = "Attest API"

func str(desc string) *openapi.Schema {
	return &openapi.Schema{Type: "string", Description: desc}
}

func boolean(desc string) *openapi.Schema {
	return &openapi.Schema{Type: "boolean", Description: desc}
}

func integer(desc string) *openapi.Schema {
	return &openapi.Schema{Type: "integer", Description: desc}
}

func object(props map[string]*openapi.Schema, required ...string) *openapi.Schema {
	return &openapi.Schema{Type: "object", Properties: props, Required: required}
}

func array(items *openapi.Schema) *openapi.Schema {
	return &openapi.Schema{Type: "array", Items: items}
}

var schemas = map[string]*openapi.Schema{
	"StoredValidation": object(map[string]*openapi.Schema{
		"key":            str("Blob key of a stored document"),
		"person":         str("Insured person to look for"),
		"organization":   str("Issuer hint, skips identification when set"),
		"reference_date": {Type: "string", Format: "date", Description: "Date validity is checked against; today when empty"},
	}, "key", "person"),
	"PageMarks": object(map[string]*openapi.Schema{
		"page_number":      integer("1-based page number"),
		"signatures_found": integer("Marks detected on the page"),
		"signatures":       array(object(nil)),
	}),
	"MarksSummary": object(map[string]*openapi.Schema{
		"total_signatures":            integer(""),
		"pages_with_signatures":       integer(""),
		"pages_without_signatures":    integer(""),
		"average_signatures_per_page": {Type: "number"},
	}),
	"MarksReport": object(map[string]*openapi.Schema{
		"filename":          str(""),
		"total_pages":       integer(""),
		"page_diagnosis":    array(openapi.SchemaRef("PageMarks")),
		"signature_summary": openapi.SchemaRef("MarksSummary"),
	}),
	"UnitVerdict": object(map[string]*openapi.Schema{
		"unit":    integer("1-based unit number"),
		"verdict": boolean("Every per-unit criterion passed"),
		"reason":  str(""),
		"details": object(map[string]*openapi.Schema{
			"validity": boolean(""),
			"policy":   boolean(""),
			"person":   boolean(""),
		}),
		"missing": boolean("The unit's branch produced no outcome"),
	}),
	"FinalVerdict": object(map[string]*openapi.Schema{
		"verdict": boolean(""),
		"classification": {
			Type: "string",
			Enum: []any{"valid", "observed", "invalid"},
		},
		"reason":          str(""),
		"details":         object(nil),
		"failed_criteria": array(str("")),
	}),
	"Report": object(map[string]*openapi.Schema{
		"run_id":            {Type: "string", Format: "uuid"},
		"filename":          str(""),
		"total_pages":       integer(""),
		"page_diagnosis":    array(openapi.SchemaRef("PageMarks")),
		"signature_summary": openapi.SchemaRef("MarksSummary"),
		"organization":      str("Identified issuer"),
		"observations":      array(object(nil)),
		"logo":              object(map[string]*openapi.Schema{"match": boolean(""), "reason": str("")}),
		"final_verdict":     openapi.SchemaRef("FinalVerdict"),
		"completed_at":      {Type: "string", Format: "date-time"},
	}),
	"Validation": {
		Description: "A Report plus delivery metadata",
		Type:        "object",
		Properties: map[string]*openapi.Schema{
			"cached":      boolean("Served from the result cache"),
			"archive_key": str("Blob key of the archived report"),
		},
	},
	"Failure": object(map[string]*openapi.Schema{
		"error":  str(""),
		"run_id": {Type: "string", Format: "uuid"},
		"failures": array(object(map[string]*openapi.Schema{
			"stage":  str(""),
			"branch": integer(""),
			"error":  str(""),
		})),
		"units": array(openapi.SchemaRef("UnitVerdict")),
	}, "error"),
}

var uploadFields = map[string]string{
	"file":           "PDF or image document",
	"person":         "Insured person to look for",
	"reference_date": "YYYY-MM-DD; today when empty",
	"organization":   "Issuer hint, skips identification when set",
}

func validationResponses() map[int]*openapi.Response {
	return map[int]*openapi.Response{
		200: openapi.ResponseJSON("Validation report", "Validation"),
		400: openapi.ErrorRef(http.StatusBadRequest),
		413: openapi.ErrorRef(http.StatusRequestEntityTooLarge),
		415: openapi.ErrorRef(http.StatusUnsupportedMediaType),
		422: openapi.ErrorRef(http.StatusUnprocessableEntity),
		502: openapi.ResponseJSON("One or more pipeline stages failed", "Failure"),
		503: openapi.ErrorRef(http.StatusServiceUnavailable),
		504: openapi.ErrorRef(http.StatusGatewayTimeout),
	}
}

// NewSpec describes the API module's routes. basePath prefixes every path.
func NewSpec(version, basePath string) *openapi.Spec {
	spec := openapi.NewSpec(apiTitle, version, "Validates insurance certificates and reports detected signature marks.")
	spec.AddServer(basePath)
	spec.Components.AddSchemas(schemas)

	spec.Paths["/validations"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Validate an uploaded document",
			Tags:        []string{"validations"},
			RequestBody: openapi.RequestBodyMultipart(uploadFields, "file", "person"),
			Responses:   validationResponses(),
		},
	}

	stored := validationResponses()
	stored[404] = openapi.ErrorRef(http.StatusNotFound)
	spec.Paths["/validations/stored"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Validate a document held in blob storage",
			Tags:        []string{"validations"},
			RequestBody: openapi.RequestBodyJSON("StoredValidation"),
			Responses:   stored,
		},
	}

	spec.Paths["/marks"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Detect handwritten marks page by page",
			Tags:        []string{"marks"},
			RequestBody: openapi.RequestBodyMultipart(map[string]string{"file": uploadFields["file"]}, "file"),
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Marks report", "MarksReport"),
				400: openapi.ErrorRef(http.StatusBadRequest),
				413: openapi.ErrorRef(http.StatusRequestEntityTooLarge),
				415: openapi.ErrorRef(http.StatusUnsupportedMediaType),
				422: openapi.ErrorRef(http.StatusUnprocessableEntity),
			},
		},
	}

	spec.Paths["/reports/{id}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Fetch an archived validation report",
			Tags:       []string{"reports"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "uuid", "Run id of the report")},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Archived report", "Report"),
				400: openapi.ErrorRef(http.StatusBadRequest),
				404: openapi.ErrorRef(http.StatusNotFound),
				503: openapi.ErrorRef(http.StatusServiceUnavailable),
			},
		},
	}

	return spec
}

func specRoutes(spec *openapi.Spec) (routes.Group, error) {
	handler, err := spec.Handler()
	if err != nil {
		return routes.Group{}, err
	}

	return routes.Group{
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/openapi.json", Handler: handler},
		},
	}, nil
}
