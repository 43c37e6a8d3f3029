package api

import (
	"github.com/fulldump/box"

	"github.com/fulldump/hashdb/api/apiv1"
	"github.com/fulldump/hashdb/service"
)

// Build returns the http api. Authentication is disabled when apiKey is
// empty.
func Build(s service.Servicer, version, apiKey, apiSecret string) *box.B {

	b := box.NewBox()

	v1 := b.Resource("/v1")
	v1.WithInterceptors(
		box.SetResponseHeader("Content-Type", "application/json"),
		Authenticate(apiKey, apiSecret),
		apiv1.InjectServicer(s),
	)
	apiv1.BuildV1(v1)

	b.Resource("/release").
		WithActions(box.Get(func() string {
			return version
		}))

	return b
}
