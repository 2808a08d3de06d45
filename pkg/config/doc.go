// Package config provides configuration management for the DOMS exporter.
//
// A single Config structure holds one section per component: logging,
// export, archive, store, metrics and tracing. Default returns a usable
// configuration; Load layers a YAML file and the environment on top of it.
//
// # Usage
//
//	cfg, err := config.Load("doms.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Environment
//
// Two mechanisms read the environment. ${VAR_NAME} references inside the
// file are substituted before parsing:
//
//	archive:
//	  type: minio
//	  access_key: ${MINIO_ACCESS_KEY}
//	  secret_key: ${MINIO_SECRET_KEY}
//
// and every key can be overridden by a DOMS_ prefixed variable named after
// its path, with dots replaced by underscores:
//
//	DOMS_ARCHIVE_BUCKET=doms-results DOMS_LOGGING_LEVEL=debug doms export ...
//
// # Data Sources
//
// export.endpoints is the registry of data sources the matchup service
// knows. The pipeline checks the primary and secondary datasets of every
// execution against it when it is not empty:
//
//	export:
//	  endpoints:
//	    - name: spurs
//	      url: https://doms.jpl.nasa.gov/ws/search/spurs
//	      type: insitu
package config
