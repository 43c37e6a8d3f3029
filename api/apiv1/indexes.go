package apiv1

import (
	"context"
	"net/http"

	"github.com/fulldump/box"

	"github.com/fulldump/hashdb/service"
)

type indexRequest struct {
	Attribute string `json:"attribute"`
}

func listIndexes(ctx context.Context) ([]*service.IndexInfo, error) {

	s, err := GetServicer(ctx)
	if err != nil {
		return nil, err
	}

	return s.ListIndexes(
		box.GetUrlParameter(ctx, "databaseName"),
		box.GetUrlParameter(ctx, "collectionName"),
	)
}

func createIndex(ctx context.Context, w http.ResponseWriter, input *indexRequest) (*service.IndexInfo, error) {

	s, err := GetServicer(ctx)
	if err != nil {
		return nil, err
	}

	databaseName := box.GetUrlParameter(ctx, "databaseName")
	collectionName := box.GetUrlParameter(ctx, "collectionName")

	err = s.CreateIndex(databaseName, collectionName, input.Attribute)
	if err != nil {
		return nil, err
	}

	index, err := s.GetIndex(databaseName, collectionName, input.Attribute)
	if err != nil {
		return nil, err
	}

	w.WriteHeader(http.StatusCreated)
	return index, nil
}

// getIndex includes the dump of the tree nodes.
func getIndex(ctx context.Context, input *indexRequest) (*service.IndexInfo, error) {

	s, err := GetServicer(ctx)
	if err != nil {
		return nil, err
	}

	return s.GetIndex(
		box.GetUrlParameter(ctx, "databaseName"),
		box.GetUrlParameter(ctx, "collectionName"),
		input.Attribute,
	)
}

func dropIndex(ctx context.Context, w http.ResponseWriter, input *indexRequest) error {

	s, err := GetServicer(ctx)
	if err != nil {
		return err
	}

	err = s.DropIndex(
		box.GetUrlParameter(ctx, "databaseName"),
		box.GetUrlParameter(ctx, "collectionName"),
		input.Attribute,
	)
	if err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
