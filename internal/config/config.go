// Package config resolves on-disk defaults for the hawk/hawkd CLI flags.
// Precedence is flag > file > built-in default: this package only ever
// supplies the middle tier.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// File is the optional ~/.hawk/hawk.yaml layer. String/int fields use their
// zero value to mean "absent" (StringOr/IntOr layer accordingly);
// ClientBanner is a *bool instead since false is a meaningful value that
// must be distinguishable from "not set in the file".
type File struct {
	SocketPath   string `yaml:"socket_path,omitempty"`
	IngestPath   string `yaml:"ingest_path,omitempty"`
	PacksDir     string `yaml:"packs_dir,omitempty"`
	StaleS       int    `yaml:"stale_s,omitempty"`
	DeadS        int    `yaml:"dead_s,omitempty"`
	TailSize     int    `yaml:"tail_size,omitempty"`
	LogLevel     string `yaml:"log_level,omitempty"`
	ClientBanner *bool  `yaml:"client_banner,omitempty"`
}

// Load reads path and unmarshals it as YAML. A missing file yields a zero
// File and no error.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// StringOr returns file over fallback when file is non-empty.
func StringOr(fileVal, fallback string) string {
	if fileVal != "" {
		return fileVal
	}
	return fallback
}

// IntOr returns file over fallback when file is nonzero.
func IntOr(fileVal, fallback int) int {
	if fileVal != 0 {
		return fileVal
	}
	return fallback
}
