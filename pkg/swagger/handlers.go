// Package swagger serves the OpenAPI document and a Swagger UI page.
package swagger

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"

	"github.com/seamed/tracker/pkg/httputil"
)

//go:embed openapi.yaml
var openapiSpec []byte

var swaggerUI = template.Must(template.New("swagger").Parse(swaggerUITemplate))

// Handlers serves the API documentation
type Handlers struct {
	specYAML []byte
	specJSON []byte
}

// NewHandlers prepares the embedded document once. A non-empty serverURL
// replaces the document's servers list.
func NewHandlers(serverURL string) (*Handlers, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(openapiSpec, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse openapi document: %w", err)
	}

	specYAML := openapiSpec
	if serverURL != "" {
		doc["servers"] = []interface{}{map[string]interface{}{"url": serverURL}}
		out, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to encode openapi document: %w", err)
		}
		specYAML = out
	}

	// yaml.v3 decodes mappings with string keys into map[string]interface{},
	// which encoding/json accepts
	specJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert openapi document: %w", err)
	}
	return &Handlers{specYAML: specYAML, specJSON: specJSON}, nil
}

// RegisterRoutes mounts the documentation routes. They are public.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/openapi.yaml", h.serveYAML).Methods(http.MethodGet)
	router.HandleFunc("/openapi.json", h.serveJSON).Methods(http.MethodGet)
	router.HandleFunc("/swagger-ui", h.serveUI).Methods(http.MethodGet)
	router.HandleFunc("/api-docs", h.serveUI).Methods(http.MethodGet)
}

func (h *Handlers) serveYAML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(h.specYAML)
}

func (h *Handlers) serveJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(h.specJSON)
}

func (h *Handlers) serveUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := swaggerUI.Execute(w, nil); err != nil {
		httputil.WriteInternalError(w, "Failed to render documentation")
	}
}

const swaggerUITemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>SeaMed API - Swagger UI</title>
  <link rel="stylesheet" type="text/css" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5.10.5/swagger-ui.css" />
  <style>
    body { margin: 0; padding: 0; }
  </style>
</head>
<body>
<div id="swagger-ui"></div>

<script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5.10.5/swagger-ui-bundle.js" charset="UTF-8"></script>
<script>
window.onload = function() {
  window.ui = SwaggerUIBundle({
    url: "/openapi.json",
    dom_id: '#swagger-ui',
    deepLinking: true,
    requestInterceptor: function(request) {
      const token = localStorage.getItem('seamed_access_token');
      if (token) {
        request.headers['Authorization'] = 'Bearer ' + token;
      }
      return request;
    }
  });
};
</script>
</body>
</html>`
