package httpadapter

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"go.uber.org/zap"
)

// requestValidationMiddleware rejects requests that do not match the API
// description. Routes the document does not describe pass through untouched.
func requestValidationMiddleware(doc *openapi3.T, logger *zap.Logger) (func(http.Handler) http.Handler, error) {
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, err
	}
	return func(next http.Handler) http.Handler {
		return requestValidator{router: router, next: next, logger: logger}
	}, nil
}

type requestValidator struct {
	router routers.Router
	next   http.Handler
	logger *zap.Logger
}

func (v requestValidator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route, pathParams, err := v.router.FindRoute(r)
	if err != nil {
		v.next.ServeHTTP(w, r)
		return
	}
	input := &openapi3filter.RequestValidationInput{
		Request:    r,
		PathParams: pathParams,
		Route:      route,
		Options: &openapi3filter.Options{
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	}
	if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
		v.logger.Debug("request_validation_failed",
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.String("operation", route.Operation.OperationID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validationMessage(err)})
		return
	}
	v.next.ServeHTTP(w, r)
}

func validationMessage(err error) string {
	switch e := err.(type) {
	case *openapi3filter.RequestError:
		if e.Parameter != nil {
			return "invalid parameter " + e.Parameter.Name
		}
		if e.RequestBody != nil && e.Err != nil {
			return "invalid request body: " + e.Err.Error()
		}
		return e.Error()
	default:
		return err.Error()
	}
}
