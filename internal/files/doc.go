// Package files indexes the coverage outputs kept in a reports directory.
//
// Discovery lists the files whose names match the exporter's timestamped output
// names and pairs them into runs. Manager adds retention: Prune removes outputs
// older than a maximum age.
package files
