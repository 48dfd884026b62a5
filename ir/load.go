package ir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format names an encoding of an instruction stream.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cbor":
		return FormatCBOR, nil
	}
	return "", fmt.Errorf("ir: cannot tell stream format of %s (want .yaml, .yml or .cbor)", path)
}

// Decode parses data in the given format.
func Decode(format Format, data []byte) (Sequence, error) {
	switch format {
	case FormatYAML:
		return DecodeYAML(data)
	case FormatCBOR:
		return Unmarshal(data)
	}
	return nil, fmt.Errorf("ir: unknown stream format %q", format)
}

// Load reads and decodes a stream file.
func Load(path string) (Sequence, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	seq, err := Decode(format, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seq, nil
}
