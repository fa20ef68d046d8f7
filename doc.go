// Package restful synthesizes REST handlers for a resource from a declarative
// description and a small set of domain operations.
//
// A resource is described by a Descriptor: its identifier type, the query type
// of each operation and the scope and path its routes live under. Descriptors
// are usually read from tags on an embedded Meta marker:
//
//	type itemStore struct {
//		restful.Meta `restful:"id=int64,find=FindQuery,list=ListQuery,delete=DeleteQuery,create=SaveQuery,update=UpdateQuery" route:"scope=/v1,path=item"`
//		db *sql.DB
//	}
//
//	desc := restful.MustParseDescriptor(itemStore{},
//		FindQuery{}, ListQuery{}, DeleteQuery{}, SaveQuery{}, UpdateQuery{})
//
// The domain side implements Operations once per resource. New checks the
// descriptor against the types the operations use and returns a Resource
// whose five handlers follow a fixed shape:
//
//	GET    /v1/item/{id}  Find                                 200 | 404 ENTITY_NOT_FOUND
//	GET    /v1/item       List                                 200 | 500
//	POST   /v1/item       Save(body)                           200 | 500
//	PUT    /v1/item/{id}  Find(id, default) then Update(body)  200 | 404 | 500
//	DELETE /v1/item/{id}  Find(id, default) then Delete(found) 200 | 404 | 500
//
// Request parts that fail to decode are answered before any domain operation
// runs: an unusable identifier with 404, a bad query string or body with 400.
//
// Mount resources on an App to serve them:
//
//	app := restful.NewApp().WithLogger(logger)
//	if err := app.Mount(items); err != nil {
//		log.Fatal(err)
//	}
//	http.ListenAndServe(":8080", app.Handler())
package restful
