package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/aircheckin/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
)

// GRPCCode maps an error kind to the status code shared by the REST and
// gRPC surfaces.
func GRPCCode(err error) codes.Code {
	var de *domain.Error
	if !errors.As(err, &de) {
		return codes.Internal
	}
	switch de.Kind {
	case domain.KindValidation:
		return codes.InvalidArgument
	case domain.KindNotFound:
		return codes.NotFound
	case domain.KindState:
		return codes.FailedPrecondition
	case domain.KindConflict:
		return codes.Aborted
	case domain.KindForbidden:
		return codes.PermissionDenied
	case domain.KindDependency:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func newErrorResponse(err error) (int, errorResponse) {
	status := runtime.HTTPStatusFromCode(GRPCCode(err))
	if status == http.StatusInternalServerError {
		return status, errorResponse{Error: "internal error", Code: domain.CodeOf(err)}
	}
	return status, errorResponse{Error: err.Error(), Code: domain.CodeOf(err)}
}

func writeError(c *gin.Context, err error) {
	status, body := newErrorResponse(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg, Code: "VALIDATION_ERROR"})
}
