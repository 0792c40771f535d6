package api

import (
	"github.com/JaimeStill/attest/internal/validations"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Validations validations.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	return &Domain{
		Validations: validations.New(validations.Deps{
			Runtime:         runtime.Workflow,
			Cache:           runtime.Cache,
			Store:           runtime.Storage,
			Metrics:         runtime.Metrics,
			Tracer:          runtime.Tracer,
			Logger:          runtime.Logger,
			MaxDocumentSize: runtime.MaxUploadSize,
		}),
	}
}
