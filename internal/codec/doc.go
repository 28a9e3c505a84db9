// Package codec reads raw input documents and writes refined output in the
// formats the CLI supports: JSON, YAML and MessagePack.
package codec
