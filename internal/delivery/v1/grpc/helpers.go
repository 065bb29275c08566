package grpc

import (
	"errors"

	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func GRPCErrorResponse(err error) error {
	switch {
	case errors.Is(err, e.ErrValidation), errors.Is(err, e.ErrStatusBadRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, e.ErrStoreNotFound), errors.Is(err, e.ErrProductNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, e.ErrInternalServerError.Error())
	}
}
