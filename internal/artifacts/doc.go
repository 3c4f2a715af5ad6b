// Package artifacts persists processing runs and the tile artifacts they
// publish in a SQLite registry.
//
// A run is created before the first frame is read and finished with a
// terminal status once the processor stops. Artifacts are recorded only when
// a tile's output file has been written in full, so an aborted run never
// lists partial output. Each artifact carries its byte size and SHA-256 so
// exports and listings can be verified later.
package artifacts
