package apiv1

import (
	"github.com/fulldump/box"
)

// BuildV1 mounts databases, collections, records, indexes and the
// transaction below v1.
func BuildV1(v1 *box.R) *box.R {

	v1.Resource("/databases").
		WithActions(
			box.Get(listDatabases),
			box.Post(createDatabase),
		)

	v1.Resource("/databases/{databaseName}").
		WithActions(
			box.Get(getDatabase),
			box.ActionPost(dropDatabase),
			box.ActionPost(renameDatabase),
		)

	v1.Resource("/databases/{databaseName}/collections").
		WithActions(
			box.Get(listCollections),
			box.Post(createCollection),
		)

	v1.Resource("/databases/{databaseName}/collections/{collectionName}").
		WithActions(
			box.Get(getCollection),
			box.ActionPost(insert),
			box.ActionPost(find),
			box.ActionPost(findBy),
			box.ActionPost(update),
			box.ActionPost(remove),
			box.ActionPost(dropCollection),
			box.ActionPost(renameCollection),
			box.ActionPost(listIndexes),
			box.ActionPost(createIndex),
			box.ActionPost(getIndex),
			box.ActionPost(dropIndex),
		)

	v1.Resource("/databases/{databaseName}/collections/{collectionName}/records/{recordId}").
		WithActions(
			box.Get(getRecord),
		)

	v1.Resource("/transaction").
		WithActions(
			box.Get(getTransaction),
			box.ActionPost(begin),
			box.ActionPost(commit),
			box.ActionPost(rollback),
		)

	return v1
}
