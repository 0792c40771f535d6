package api

import (
	"net/http"

	"github.com/JaimeStill/attest/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime) error {
	reports := newReportsHandler(runtime.Storage, runtime.Logger, runtime.ReportPrefix, runtime.MaxUploadSize)

	spec, err := specRoutes(NewSpec(runtime.Version, runtime.BasePath))
	if err != nil {
		return err
	}

	routes.Register(
		mux,
		domain.Validations.Handler(runtime.MaxUploadSize).Routes(),
		reports.routes(),
		spec,
	)
	return nil
}
