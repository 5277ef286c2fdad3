// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"fmt"
	"os"

	"github.com/trainrun/trainrun/pkg/cueutil"
)

// DefaultSchemaDefinition is the CUE definition a schema file must declare
// unless another one is requested.
const DefaultSchemaDefinition = "#Config"

// ValidateSchema checks t against the CUE definition def (DefaultSchemaDefinition
// when empty) in the schema file at schemaPath. Every value in t must satisfy
// the definition and the unified result must be concrete. Failures are
// returned as *SchemaError.
//
// A schema typically leaves unknown sections open:
//
//	#Config: {
//		training: {
//			batch_size: int & >0
//			lr:         float & >0 & <1
//			...
//		}
//		...
//	}
func ValidateSchema(ctx context.Context, t *Tree, schemaPath, def string) error {
	select {
	case <-ctx.Done():
		return &SchemaError{SchemaPath: schemaPath, Cause: ctx.Err()}
	default:
	}

	if def == "" {
		def = DefaultSchemaDefinition
	}

	data, err := os.ReadFile(schemaPath)
	if err != nil {
		return &SchemaError{SchemaPath: schemaPath, Cause: fmt.Errorf("read schema: %w", err)}
	}

	if err := cueutil.Validate(data, def, t.root, cueutil.WithFilename(schemaPath)); err != nil {
		return &SchemaError{SchemaPath: schemaPath, Cause: err}
	}
	return nil
}
