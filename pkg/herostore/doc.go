// Package herostore provides a library for managing superhero records and
// their attached images, with pluggable repository and blob storage backends.
//
// It exposes a single Service interface that orchestrates hero CRUD with
// pagination, transactional image attach/remove, cascading hero deletion, and
// streamed image retrieval. Implementations of repositories (memory,
// Postgres) and blob stores (memory, filesystem, S3, MinIO) are provided
// under subpackages.
//
// Consistency Model
//
// The repository's WithTx primitive is the only atomicity boundary. Blob
// writes happen outside of it: a blob uploaded for a hero that vanishes
// before the record update commits is left behind as an orphan. This gap is
// deliberate and documented on Service.AddImage; there is no automatic
// reclamation.
package herostore
