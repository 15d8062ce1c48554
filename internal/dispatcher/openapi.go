// openapi.go runs Call: openapi tasks: it loads and validates the operation
// against an OpenAPI document with github.com/getkin/kin-openapi before
// delegating the actual round trip to HTTPExecutor, so a malformed request
// fails fast as a validation error rather than reaching the network.
package dispatcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"

	"github.com/danrygg/wovenflow/internal/model"
)

// OpenAPIExecutor invokes Call: openapi tasks, validating each request
// against a cached, loaded-by-reference document.
type OpenAPIExecutor struct {
	http *HTTPExecutor

	mu      sync.Mutex
	routers map[string]routers.Router
	loader  *openapi3.Loader
}

func NewOpenAPIExecutor(http *HTTPExecutor) *OpenAPIExecutor {
	return &OpenAPIExecutor{
		http:    http,
		routers: make(map[string]routers.Router),
		loader:  openapi3.NewLoader(),
	}
}

func (e *OpenAPIExecutor) routerFor(document string) (routers.Router, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.routers[document]; ok {
		return r, nil
	}
	doc, err := e.loader.LoadFromURI(&url.URL{Path: document})
	if err != nil {
		return nil, fmt.Errorf("openapi: load %s: %w", document, err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("openapi: invalid document %s: %w", document, err)
	}
	r, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("openapi: build router: %w", err)
	}
	e.routers[document] = r
	return r, nil
}

func (e *OpenAPIExecutor) Call(ctx context.Context, args map[string]interface{}, dctx DispatchContext) (interface{}, error) {
	document, _ := args["document"].(string)
	endpoint, _ := args["endpoint"].(string)
	method, _ := args["method"].(string)
	if method == "" {
		method = "GET"
	}

	if document != "" && endpoint != "" {
		r, err := e.routerFor(document)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
		if err != nil {
			return nil, err
		}
		route, pathParams, err := r.FindRoute(req)
		if err != nil {
			return nil, fmt.Errorf("openapi: %s %s does not match %s: %w", method, endpoint, document, err)
		}
		if err := openapi3filter.ValidateRequest(ctx, &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
		}); err != nil {
			return nil, model.NewProblemDetails(model.ErrorValidation, 400, "OpenAPI request validation failed", err.Error(), dctx.TaskReference)
		}
	}

	return e.http.Call(ctx, args, dctx)
}
