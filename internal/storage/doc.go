// Package storage keeps simulation runs on disk, one directory per run with
// metadata.json and trace.csv.
package storage
