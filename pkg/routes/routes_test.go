package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JaimeStill/attest/pkg/routes"
)

func ok(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()

	routes.Register(mux,
		routes.Group{
			Prefix: "/validations",
			Routes: []routes.Route{
				{Method: "POST", Pattern: "", Handler: ok},
				{Method: "POST", Pattern: "/stored", Handler: ok},
			},
		},
		routes.Group{
			Prefix: "/reports",
			Children: []routes.Group{
				{Prefix: "/archived", Routes: []routes.Route{{Method: "GET", Pattern: "/{id}", Handler: ok}}},
			},
		},
	)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPost, "/validations", http.StatusOK},
		{http.MethodPost, "/validations/stored", http.StatusOK},
		{http.MethodGet, "/reports/archived/42", http.StatusOK},
		{http.MethodGet, "/validations", http.StatusMethodNotAllowed},
		{http.MethodGet, "/reports/42", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
