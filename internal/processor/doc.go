// Package processor runs one video through the tiling pipeline.
//
// Frames are pulled one at a time from a frames.Source and routed to the
// tile that owns their frame number. Each tile samples its cross-sections
// into pooled surfaces; when a tile's last frame arrives its layers are
// handed to the encoder while ingestion continues with the next tile.
// Finished tiles are written atomically into the run directory and
// published to the artifact registry.
package processor
