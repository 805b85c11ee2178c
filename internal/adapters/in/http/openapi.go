package http

import (
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/labstack/echo/v4"
	"github.com/swaggo/swag"
)

//go:embed openapi.json
var openAPIDocument []byte

var registerDocOnce sync.Once

type openAPIDoc struct{}

func (openAPIDoc) ReadDoc() string {
	return string(openAPIDocument)
}

// registerSwaggerDoc makes the document available to the swagger UI handler.
func registerSwaggerDoc() {
	registerDocOnce.Do(func() {
		swag.Register(swag.Name, openAPIDoc{})
	})
}

// LoadOpenAPI parses and validates the embedded document.
func LoadOpenAPI() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPIDocument)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err = doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	// Requests are matched on path only, whatever host serves them.
	doc.Servers = nil
	return doc, nil
}

// RequestValidator rejects requests that do not match the document with 400.
// Requests for paths the document does not describe are passed through.
func RequestValidator(doc *openapi3.T) (echo.MiddlewareFunc, error) {
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			req := ctx.Request()
			route, pathParams, err := router.FindRoute(req)
			if err != nil {
				if errors.Is(err, routers.ErrPathNotFound) || errors.Is(err, routers.ErrMethodNotAllowed) {
					return next(ctx)
				}
				return badRequest(ctx, err.Error())
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    req,
				PathParams: pathParams,
				Route:      route,
				Options: &openapi3filter.Options{
					AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				},
			}
			if err = openapi3filter.ValidateRequest(req.Context(), input); err != nil {
				return badRequest(ctx, validationMessage(err))
			}
			return next(ctx)
		}
	}, nil
}

func validationMessage(err error) string {
	var requestErr *openapi3filter.RequestError
	if errors.As(err, &requestErr) {
		if requestErr.Parameter != nil {
			return fmt.Sprintf("Invalid parameter %s: %s", requestErr.Parameter.Name, firstLine(requestErr.Err))
		}
		if requestErr.RequestBody != nil {
			return "Invalid request body: " + firstLine(requestErr.Err)
		}
	}
	return http.StatusText(http.StatusBadRequest) + ": " + firstLine(err)
}

func firstLine(err error) string {
	if err == nil {
		return ""
	}
	line, _, _ := strings.Cut(err.Error(), "\n")
	return line
}
