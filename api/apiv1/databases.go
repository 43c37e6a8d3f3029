package apiv1

import (
	"context"
	"net/http"

	"github.com/fulldump/box"

	"github.com/fulldump/hashdb/service"
)

type nameRequest struct {
	Name string `json:"name"`
}

func listDatabases(ctx context.Context) ([]string, error) {

	s, err := GetServicer(ctx)
	if err != nil {
		return nil, err
	}

	return s.ListDatabases(), nil
}

func createDatabase(ctx context.Context, w http.ResponseWriter, input *nameRequest) (*service.DatabaseInfo, error) {

	s, err := GetServicer(ctx)
	if err != nil {
		return nil, err
	}

	db, err := s.CreateDatabase(input.Name)
	if err != nil {
		return nil, err
	}

	w.WriteHeader(http.StatusCreated)
	return db, nil
}

func getDatabase(ctx context.Context) (*service.DatabaseInfo, error) {

	s, err := GetServicer(ctx)
	if err != nil {
		return nil, err
	}

	return s.GetDatabase(box.GetUrlParameter(ctx, "databaseName"))
}

func dropDatabase(ctx context.Context, w http.ResponseWriter) error {

	s, err := GetServicer(ctx)
	if err != nil {
		return err
	}

	err = s.DropDatabase(box.GetUrlParameter(ctx, "databaseName"))
	if err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func renameDatabase(ctx context.Context, input *nameRequest) (*service.DatabaseInfo, error) {

	s, err := GetServicer(ctx)
	if err != nil {
		return nil, err
	}

	err = s.RenameDatabase(box.GetUrlParameter(ctx, "databaseName"), input.Name)
	if err != nil {
		return nil, err
	}

	return s.GetDatabase(input.Name)
}
