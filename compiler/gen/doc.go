// Package gen generates typed Go records for models declared in schema files.
//
// For each model it writes one file holding a struct with a field per model
// field, the schema of the model, and conversions from and to instances:
//
//	// User is a typed record of the "users" model.
//	type User struct {
//		ID    int64    `json:"id,omitempty"`
//		Name  string   `json:"name"`
//		Age   *float64 `json:"age,omitempty"`
//	}
//
//	var UserSchema = pgoose.MustSchema(...)
//
//	func UserFromInstance(in *pgoose.Instance) *User
//	func (u *User) Values() map[string]any
//
// A models.go file registers every schema of the package with Define.
//
// # Pipeline
//
//	schema files (*.yaml)
//	        ↓
//	   load.Schema
//	        ↓
//	   Graph (validated types and references)
//	        ↓
//	   jennifer files, formatted by goimports
//
// Files are rendered in parallel, bounded by Config.Workers.
//
// # Error Handling
//
//   - SchemaError: model declaration errors (matches ErrInvalidSchema)
//   - ConfigError: configuration errors (matches ErrMissingConfig)
//   - GenerationError: rendering or writing errors (matches ErrGenerationFailed)
package gen
