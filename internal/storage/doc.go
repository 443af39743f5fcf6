// Package storage provides the file system abstraction used by the file
// writers. Paths passed to an FS are slash-separated and relative to its root.
//
// Roots:
//   - /abs/path or file:///abs/path: Local, writes are atomic (temp + rename)
//   - s3://bucket/prefix: S3, objects are uploaded on Close
package storage
