package world

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlWorldFile is the top-level YAML structure for world content files.
type yamlWorldFile struct {
	Spawn yamlRoom `yaml:"spawn"`
}

// yamlRoom is the YAML representation of a room.
type yamlRoom struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Properties  map[string]string `yaml:"properties"`
}

// LoadSpawnRoomFromFile reads the spawn room from a YAML world file.
//
// Precondition: path must point to a readable YAML file.
// Postcondition: Returns a RoomSpec with a non-empty Name or a non-nil error.
func LoadSpawnRoomFromFile(path string) (RoomSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RoomSpec{}, fmt.Errorf("reading world file %s: %w", path, err)
	}
	return LoadSpawnRoomFromBytes(data)
}

// LoadSpawnRoomFromBytes parses the spawn room from YAML bytes. A top-level
// description field is folded into the "description" property.
//
// Postcondition: Returns a RoomSpec with a non-empty Name or a non-nil error.
func LoadSpawnRoomFromBytes(data []byte) (RoomSpec, error) {
	var file yamlWorldFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return RoomSpec{}, fmt.Errorf("parsing world YAML: %w", err)
	}

	spec := RoomSpec{
		Name:       file.Spawn.Name,
		Properties: make(map[string]string, len(file.Spawn.Properties)+1),
	}
	for k, v := range file.Spawn.Properties {
		spec.Properties[k] = v
	}
	if file.Spawn.Description != "" {
		spec.Properties[PropertyDescription] = file.Spawn.Description
	}
	if spec.Name == "" {
		return RoomSpec{}, fmt.Errorf("validating world: %w", ErrSpawnRoomRequired)
	}
	return spec, nil
}
