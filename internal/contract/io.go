package contract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Loaded is the result of reading a contract file whose concrete type is
// not known until the contract_type field has been decoded. Exactly one of
// the three pointers is set, matching Type.
type Loaded struct {
	Type           string
	Source         *SourceContract
	Destination    *DestinationContract
	Transformation *TransformationContract
}

// ID returns the type-specific identifier of the loaded contract.
func (l *Loaded) ID() string {
	switch l.Type {
	case TypeSource:
		return l.Source.SourceID
	case TypeDestination:
		return l.Destination.DestinationID
	case TypeTransformation:
		return l.Transformation.TransformationID
	}
	return ""
}

// Version returns the contract_version of the loaded contract.
func (l *Loaded) Version() string {
	switch l.Type {
	case TypeSource:
		return l.Source.ContractVersion
	case TypeDestination:
		return l.Destination.ContractVersion
	case TypeTransformation:
		return l.Transformation.ContractVersion
	}
	return ""
}

// Load reads a contract file and decodes it into the concrete contract
// type named by its contract_type field.
func Load(path string) (*Loaded, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read contract: %w", err)
	}

	var head struct {
		ContractType string `json:"contract_type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("parse contract: %w", err)
	}

	loaded := &Loaded{Type: head.ContractType}
	switch head.ContractType {
	case TypeSource:
		loaded.Source = &SourceContract{}
		err = json.Unmarshal(raw, loaded.Source)
	case TypeDestination:
		loaded.Destination = &DestinationContract{}
		err = json.Unmarshal(raw, loaded.Destination)
	case TypeTransformation:
		loaded.Transformation = &TransformationContract{}
		err = json.Unmarshal(raw, loaded.Transformation)
	default:
		return nil, fmt.Errorf("unknown contract_type %q", head.ContractType)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s contract: %w", head.ContractType, err)
	}
	return loaded, nil
}

// Save writes a contract as indented JSON, creating parent directories as
// needed. The path must be absolute so results never land relative to the
// server's working directory.
func Save(path string, c any) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("contract path %q is not absolute", path)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode contract: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create contract dir: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write contract: %w", err)
	}
	return nil
}
