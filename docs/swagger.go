// Package docs geobank Registry API.
//
// Geospatial bank-branch registry: branch registration and nearest-branch
// proximity search, backed by a two-tier stampede-protected cache and a
// background reconciler that keeps the in-memory spatial index consistent
// with the authoritative branch store.
//
//	Schemes: http, https
//	BasePath: /
//	Version: 1.0.0
//
//	Consumes:
//	- application/json
//
//	Produces:
//	- application/json
//
// swagger:meta
package docs
