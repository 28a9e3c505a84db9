// Package record adapts raw input values to the small capability set the
// refine engine reads through: keyed lookup and presence checks.
//
// Four adapters cover the shapes a caller is likely to hand over:
//
//   - Map wraps any map with string keys (array-like records).
//   - Struct wraps a struct or a pointer to one (object-like records). Keys
//     match a `refinery` struct tag, then the field name case-insensitively,
//     then a zero-argument method.
//   - Cty wraps a cty.Value of object or map type, which is how records
//     decoded from JSON or YAML travel through the HCL-driven refiners.
//   - Scalar wraps everything else and misses on every read.
//
// The package also owns the value inspection the engine relies on (IsNil,
// IsComposite) and the conversion between native Go values and cty.
package record
