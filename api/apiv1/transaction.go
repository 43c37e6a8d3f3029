package apiv1

import (
	"context"

	"github.com/fulldump/hashdb/service"
)

type transactionResponse struct {
	Active bool `json:"active"`
}

func getTransaction(ctx context.Context) (*transactionResponse, error) {

	s, err := GetServicer(ctx)
	if err != nil {
		return nil, err
	}

	return &transactionResponse{Active: s.InTransaction()}, nil
}

func transactionStep(ctx context.Context, step func(s service.Servicer) error) (*transactionResponse, error) {

	s, err := GetServicer(ctx)
	if err != nil {
		return nil, err
	}

	err = step(s)
	if err != nil {
		return nil, err
	}

	return &transactionResponse{Active: s.InTransaction()}, nil
}

func begin(ctx context.Context) (*transactionResponse, error) {
	return transactionStep(ctx, service.Servicer.Begin)
}

func commit(ctx context.Context) (*transactionResponse, error) {
	return transactionStep(ctx, service.Servicer.Commit)
}

func rollback(ctx context.Context) (*transactionResponse, error) {
	return transactionStep(ctx, service.Servicer.Rollback)
}
