package apiv1

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/fulldump/box"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/fulldump/hashdb/collection"
	"github.com/fulldump/hashdb/dberror"
	"github.com/fulldump/hashdb/query"
)

// insert reads a stream of JSON objects and writes back every created record,
// one per line.
func insert(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

	s, err := GetServicer(ctx)
	if err != nil {
		return err
	}

	databaseName := box.GetUrlParameter(ctx, "databaseName")
	collectionName := box.GetUrlParameter(ctx, "collectionName")

	// fail before reading the body
	_, err = s.GetCollection(databaseName, collectionName)
	if err != nil {
		return err
	}

	decoder := jsontext.NewDecoder(r.Body)
	encoder := jsontext.NewEncoder(w)

	for i := 0; true; i++ {
		raw, err := decoder.ReadValue()
		if errors.Is(err, io.EOF) {
			if i == 0 {
				w.WriteHeader(http.StatusNoContent)
			}
			return nil
		}
		if err != nil {
			return dberror.InvalidArgument("read record %d: %s", i, err.Error())
		}

		attributes := map[string]any{}
		err = json.Unmarshal(raw, &attributes)
		if err != nil {
			return dberror.InvalidArgument("decode record %d: %s", i, err.Error())
		}

		record, err := s.Insert(databaseName, collectionName, attributes)
		if err != nil {
			return err
		}

		if i == 0 {
			w.WriteHeader(http.StatusCreated)
		}
		err = json.MarshalEncode(encoder, record)
		if err != nil {
			return err
		}
	}

	return nil
}

type findRequest struct {
	Where  string         `json:"where"`
	Filter map[string]any `json:"filter"`
	Fields []string       `json:"fields"`
	Sort   string         `json:"sort"`
	Order  string         `json:"order"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

// find accepts either a where expression or a filter document.
func find(ctx context.Context, input *findRequest) (*query.Result, error) {

	s, err := GetServicer(ctx)
	if err != nil {
		return nil, err
	}

	return s.Find(
		box.GetUrlParameter(ctx, "databaseName"),
		box.GetUrlParameter(ctx, "collectionName"),
		input.Filter,
		query.Options{
			Filter:    input.Where,
			Fields:    input.Fields,
			SortKey:   input.Sort,
			SortOrder: input.Order,
			Offset:    input.Offset,
			Limit:     input.Limit,
		},
	)
}

type findByRequest struct {
	Attribute string `json:"attribute"`
	Value     any    `json:"value"`
}

// findBy returns every record whose attribute equals value, through the
// index when there is one.
func findBy(ctx context.Context, input *findByRequest) ([]*collection.Record, error) {

	s, err := GetServicer(ctx)
	if err != nil {
		return nil, err
	}

	return s.FindBy(
		box.GetUrlParameter(ctx, "databaseName"),
		box.GetUrlParameter(ctx, "collectionName"),
		input.Attribute,
		input.Value,
	)
}

type updateRequest struct {
	Where   string         `json:"where"`
	Changes map[string]any `json:"changes"`
}

type updateResponse struct {
	Updated int `json:"updated"`
}

func update(ctx context.Context, input *updateRequest) (*updateResponse, error) {

	s, err := GetServicer(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.Update(
		box.GetUrlParameter(ctx, "databaseName"),
		box.GetUrlParameter(ctx, "collectionName"),
		input.Where,
		input.Changes,
	)
	if err != nil {
		return nil, err
	}

	return &updateResponse{Updated: n}, nil
}

type removeRequest struct {
	Where string `json:"where"`
}

type removeResponse struct {
	Deleted int `json:"deleted"`
}

func remove(ctx context.Context, input *removeRequest) (*removeResponse, error) {

	s, err := GetServicer(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.Delete(
		box.GetUrlParameter(ctx, "databaseName"),
		box.GetUrlParameter(ctx, "collectionName"),
		input.Where,
	)
	if err != nil {
		return nil, err
	}

	return &removeResponse{Deleted: n}, nil
}

func getRecord(ctx context.Context) (*collection.Record, error) {

	s, err := GetServicer(ctx)
	if err != nil {
		return nil, err
	}

	return s.GetRecord(
		box.GetUrlParameter(ctx, "databaseName"),
		box.GetUrlParameter(ctx, "collectionName"),
		box.GetUrlParameter(ctx, "recordId"),
	)
}
