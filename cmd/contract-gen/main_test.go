package main

import (
	"reflect"
	"testing"

	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
)

// TestDestinationSchemaFromDescriptor checks the descriptor-to-destination
// conversion: native types preferred over inferred ones, NOT NULL and
// PRIMARY KEY constraints derived per column.
func TestDestinationSchemaFromDescriptor(t *testing.T) {
	t.Parallel()

	desc := &contract.TableDescriptor{
		Name:       "accounts",
		PrimaryKey: []string{"id"},
		Columns: contract.SourceSchema{
			{Name: "id", InferredType: contract.TypeInteger, NativeType: "INTEGER", Nullable: false},
			{Name: "name", InferredType: contract.TypeString, NativeType: "TEXT", Nullable: false},
			{Name: "note", InferredType: contract.TypeString, Nullable: true},
		},
	}

	got := destinationSchemaFromDescriptor(desc)

	if want := []string{"id", "name", "note"}; !reflect.DeepEqual(got.Fields, want) {
		t.Errorf("Fields = %v, want %v", got.Fields, want)
	}
	// note has no native type and falls back to the inferred one.
	if want := []string{"INTEGER", "TEXT", "string"}; !reflect.DeepEqual(got.Types, want) {
		t.Errorf("Types = %v, want %v", got.Types, want)
	}
	if want := []string{"NOT NULL", "PRIMARY KEY"}; !reflect.DeepEqual(got.Constraints["id"], want) {
		t.Errorf("Constraints[id] = %v, want %v", got.Constraints["id"], want)
	}
	if want := []string{"NOT NULL"}; !reflect.DeepEqual(got.Constraints["name"], want) {
		t.Errorf("Constraints[name] = %v, want %v", got.Constraints["name"], want)
	}
	if _, ok := got.Constraints["note"]; ok {
		t.Errorf("nullable non-key column must carry no constraints, got %v", got.Constraints["note"])
	}
}
