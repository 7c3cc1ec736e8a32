// Package manifest loads route tables from JSON manifests.
//
// A manifest names every route, its pattern and the view it renders:
//
//	{
//	  "base": "/app",
//	  "routes": [
//	    {"name": "home", "path": "/", "view": "HomeView"},
//	    {"name": "experiment", "path": "/experiment/:name", "view": "ExperimentView", "props": true}
//	  ]
//	}
//
// Manifests are read from the local filesystem or, for locations of the
// form s3://bucket/key, from Amazon S3.
package manifest
