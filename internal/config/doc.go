// Package config provides centralized configuration management for covcheck.
// It loads configuration from multiple sources, validates it, and resolves
// the directories the application writes to.
//
// # Configuration Sources
//
// Sources are layered in increasing order of precedence:
//
//  1. Default values
//  2. A YAML file (COVCHECK_CONFIG, ./covcheck.yaml, ./configs/covcheck.yaml,
//     or covcheck.yaml next to the executable)
//  3. Environment variables
//
// Keys missing from the YAML file keep their default; unset environment
// variables leave the field untouched.
//
// # Environment Variables
//
// All environment variables follow the pattern COVCHECK_<SECTION>_<FIELD>:
//
//	COVCHECK_SERVER_PORT=8080
//	COVCHECK_SERVER_MAX_UPLOAD_BYTES=52428800
//	COVCHECK_PATHS_REPORTS_DIR=/var/lib/covcheck/reports
//	COVCHECK_LOGGING_LEVEL=debug
//	COVCHECK_OUTPUT_FORMAT=csv
//	COVCHECK_OUTPUT_RETENTION=168h
//
// # Path Management
//
// Relative directories are resolved against the executable location:
//
//	paths, err := cfg.Paths.Resolve()
//	reportPath := paths.GetReportPath("missing_combinations_20250101_120000.xlsx")
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
