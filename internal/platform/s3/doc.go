// Package s3 stores document bytes in S3-compatible object storage.
//
// This package is an infrastructure adapter: the single BlobStore type
// satisfies both the document upload path's blob writer and the task
// pipeline's blob store without exposing SDK types to the core
// application. It speaks to AWS S3 directly or, via a custom endpoint
// with path-style addressing, to compatible services such as MinIO.
package s3
