package httpapi

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"gopkg.in/yaml.v3"
)

//go:embed openapi/openapi.json
var openapiFS embed.FS

const (
	docsPath      = "/v3/api-docs"
	docsYAMLPath  = "/v3/api-docs.yaml"
	swaggerPrefix = "/swagger-ui"
)

const docsDisabledMessage = "Not Available"

func openAPIDocument() ([]byte, []byte, error) {
	raw, err := openapiFS.ReadFile("openapi/openapi.json")
	if err != nil {
		return nil, nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("openapi document: %w", err)
	}
	y, err := yaml.Marshal(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("openapi yaml: %w", err)
	}
	return raw, y, nil
}

// registerDocs mounts the OpenAPI document and Swagger UI. Disabled docs
// still claim their paths so they answer 404 "Not Available" instead of
// falling through to the gate as protected resources.
func registerDocs(r *mux.Router, enabled bool, log zerolog.Logger) {
	if !enabled {
		r.PathPrefix(docsPath).HandlerFunc(docsUnavailable)
		r.PathPrefix(swaggerPrefix).HandlerFunc(docsUnavailable)
		return
	}

	jsonDoc, yamlDoc, err := openAPIDocument()
	if err != nil {
		log.Error().Err(err).Msg("api docs unavailable")
		r.PathPrefix(docsPath).HandlerFunc(docsUnavailable)
		r.PathPrefix(swaggerPrefix).HandlerFunc(docsUnavailable)
		return
	}

	r.HandleFunc(docsPath, serveDoc("application/json", jsonDoc)).Methods(http.MethodGet)
	r.HandleFunc(docsYAMLPath, serveDoc("application/yaml", yamlDoc)).Methods(http.MethodGet)
	r.HandleFunc(docsPath+"/swagger-config", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"url": docsPath})
	}).Methods(http.MethodGet)

	r.Handle(swaggerPrefix, http.RedirectHandler(swaggerPrefix+"/index.html", http.StatusFound))
	r.PathPrefix(swaggerPrefix + "/").Handler(httpSwagger.Handler(httpSwagger.URL(docsPath)))
}

func serveDoc(contentType string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

func docsUnavailable(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = io.WriteString(w, docsDisabledMessage)
}
