package apiv1

import (
	"context"
	"net/http"

	"github.com/fulldump/box"

	"github.com/fulldump/hashdb/service"
)

func listCollections(ctx context.Context) ([]*service.CollectionInfo, error) {

	s, err := GetServicer(ctx)
	if err != nil {
		return nil, err
	}

	return s.ListCollections(box.GetUrlParameter(ctx, "databaseName"))
}

func createCollection(ctx context.Context, w http.ResponseWriter, input *nameRequest) (*service.CollectionInfo, error) {

	s, err := GetServicer(ctx)
	if err != nil {
		return nil, err
	}

	col, err := s.CreateCollection(box.GetUrlParameter(ctx, "databaseName"), input.Name)
	if err != nil {
		return nil, err
	}

	w.WriteHeader(http.StatusCreated)
	return col, nil
}

func getCollection(ctx context.Context) (*service.CollectionInfo, error) {

	s, err := GetServicer(ctx)
	if err != nil {
		return nil, err
	}

	return s.GetCollection(
		box.GetUrlParameter(ctx, "databaseName"),
		box.GetUrlParameter(ctx, "collectionName"),
	)
}

func dropCollection(ctx context.Context, w http.ResponseWriter) error {

	s, err := GetServicer(ctx)
	if err != nil {
		return err
	}

	err = s.DropCollection(
		box.GetUrlParameter(ctx, "databaseName"),
		box.GetUrlParameter(ctx, "collectionName"),
	)
	if err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func renameCollection(ctx context.Context, input *nameRequest) (*service.CollectionInfo, error) {

	s, err := GetServicer(ctx)
	if err != nil {
		return nil, err
	}

	databaseName := box.GetUrlParameter(ctx, "databaseName")

	err = s.RenameCollection(databaseName, box.GetUrlParameter(ctx, "collectionName"), input.Name)
	if err != nil {
		return nil, err
	}

	return s.GetCollection(databaseName, input.Name)
}
