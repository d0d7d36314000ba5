package chat

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/janhq/support-relay/internal/utils/platformerrors"
)

func notFound(ctx context.Context, message, uuid string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, message, nil, uuid)
}

func dbError(ctx context.Context, message string, err error, uuid string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, message, err, uuid)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict, message, err, uuid)
	}
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, message, err, uuid)
}
