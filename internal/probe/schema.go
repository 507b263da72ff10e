package probe

import (
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/apperrors"
	"github.com/JacobJNilsson/ingestion-contract-mcp/internal/contract"
)

// InferSchema runs per-column inference over the sampled rows and combines
// the results into an ordered schema. Column order follows columnNames
// exactly.
//
// Rows narrower than the column list contribute empty samples for the
// missing columns, which keeps a short row from shifting its neighbours.
//
// Errors:
//   - *apperrors.SchemaInferenceError when columnNames is empty — with no
//     columns there is nothing to infer.
func InferSchema(columnNames []string, rows [][]string) (contract.SourceSchema, error) {
	if len(columnNames) == 0 {
		return nil, &apperrors.SchemaInferenceError{Reason: "source has no columns"}
	}

	schema := make(contract.SourceSchema, 0, len(columnNames))
	for col, name := range columnNames {
		samples := make([]string, 0, len(rows))
		for _, row := range rows {
			if col < len(row) {
				samples = append(samples, row[col])
			} else {
				samples = append(samples, "")
			}
		}
		schema = append(schema, InferColumn(name, samples))
	}
	return schema, nil
}
