// Package config provides configuration parsing for navroute deployments.
//
// The configuration is stored in navroute.json. Values from a .env file
// and the process environment are applied on top of the file.
//
// # Configuration File Structure
//
//	{
//	  "name": "lab",
//	  "base": "/app",
//	  "manifest": "s3://deploy/lab/routes.json",
//	  "server": {
//	    "host": "0.0.0.0",
//	    "port": 8080,
//	    "handshakeTimeout": "5s",
//	    "shutdownTimeout": "10s"
//	  },
//	  "log": {"level": "info", "format": "text"},
//	  "metrics": {"enabled": true, "path": "/metrics"},
//	  "s3": {"region": "eu-west-1"}
//	}
//
// Routes may be listed inline under "routes" instead of a manifest.
//
// # Environment
//
//	NAVROUTE_ADDR       host:port to listen on
//	NAVROUTE_BASE       deployment base path
//	NAVROUTE_MANIFEST   manifest location (file or s3://bucket/key)
//	NAVROUTE_LOG_LEVEL  debug, info, warn or error
//	NAVROUTE_S3_REGION  region for s3:// manifests
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Listening on", cfg.Addr())
package config
