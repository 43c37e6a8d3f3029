package apiv1

import (
	"context"
	"errors"

	"github.com/fulldump/box"

	"github.com/fulldump/hashdb/service"
)

const ContextServicerKey = "5b7c0f5e-8d2a-4c1e-9f43-2a6f1d0e7b91"

var ErrNoServicer = errors.New("servicer not available")

func SetServicer(ctx context.Context, s service.Servicer) context.Context {
	return context.WithValue(ctx, ContextServicerKey, s)
}

func GetServicer(ctx context.Context) (service.Servicer, error) {
	s, ok := ctx.Value(ContextServicerKey).(service.Servicer)
	if !ok {
		return nil, ErrNoServicer
	}
	return s, nil
}

func InjectServicer(s service.Servicer) box.I {
	return func(next box.H) box.H {
		return func(ctx context.Context) {
			next(SetServicer(ctx, s))
		}
	}
}
