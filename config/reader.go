package config

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Read reads a config from the given file, substituting $VAR and ${VAR} references from the
// environment first. Files ending in .yaml or .yml are YAML; anything else is JSON. Relative
// trajectory paths are resolved against the directory of the file.
//
// The config is not validated, since command line links may still be added to it.
func Read(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %q", filePath)
	}
	return FromReader(filePath, bytes.NewReader(buf))
}

// FromReader reads a config from the given reader and specifies where, if applicable, the file
// the reader originated from. The format is chosen by the extension of originalPath.
func FromReader(originalPath string, r io.Reader) (*Config, error) {
	cfg := Config{ConfigFilePath: originalPath}
	switch strings.ToLower(filepath.Ext(originalPath)) {
	case ".yaml", ".yml":
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, "failed to decode Config from yaml")
		}
	default:
		if err := json.NewDecoder(r).Decode(&cfg); err != nil {
			return nil, errors.Wrap(err, "failed to decode Config from json")
		}
	}

	if originalPath != "" {
		dir := filepath.Dir(originalPath)
		for _, link := range cfg.Links {
			for _, frame := range link.Frames {
				if frame.Trajectory != nil && frame.Trajectory.File != "" && !filepath.IsAbs(frame.Trajectory.File) {
					frame.Trajectory.File = filepath.Join(dir, frame.Trajectory.File)
				}
			}
		}
	}
	return &cfg, nil
}
