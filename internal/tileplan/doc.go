// Package tileplan partitions a decoded frame sequence into uniform tiles.
//
// Plan is a pure function of the source dimensions, the usable frame count,
// and the user's sampling settings. It decides the tile pixel dimensions, how
// many tiles fit, which 1-based frame range each tile owns, whether the
// destination surfaces must be rotated, and whether source lines must be
// resampled to reach the requested tile proportion.
//
// Planning never fails with an error. When the settings cannot produce a
// single tile the returned plan has zero tiles and one or more human-readable
// notices; callers must check TileCount before starting frame processing.
package tileplan
