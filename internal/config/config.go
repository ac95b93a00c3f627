// Package config loads the two JSON configuration shapes described in
// spec.md §6: a server config ({port}) and a client config
// ({host,port,numbers_count,upper_bound}). It is the Go equivalent of
// original_source's server::Config/client::Config, ported from
// boost::property_tree to encoding/json — no pack dependency targets
// plain file-based JSON config loading more specifically than the
// standard library already does (see DESIGN.md).
package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Server is the server process's configuration file shape.
type Server struct {
	Port uint16 `json:"port"`
}

// Client is the client process's configuration file shape.
type Client struct {
	Host          string  `json:"host"`
	Port          uint16  `json:"port"`
	NumbersCount  uint64  `json:"numbers_count"`
	UpperBound    float64 `json:"upper_bound"`
}

// LoadServer reads and parses a server config file.
func LoadServer(path string) (*Server, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config file not found at location: %s", path)
	}

	var cfg Server
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "malformed server config at %s", path)
	}

	return &cfg, nil
}

// LoadClient reads and parses a client config file.
func LoadClient(path string) (*Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config file not found at location: %s", path)
	}

	var cfg Client
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "malformed client config at %s", path)
	}

	return &cfg, nil
}
