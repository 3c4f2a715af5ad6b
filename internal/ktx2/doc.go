// Package ktx2 reads and writes KTX 2.0 texture containers.
//
// Only the parts of the format the tile pipeline needs are modelled: the
// header and index, the level index, the basic data format descriptor, the
// key/value block and supercompression global data. Pixel payloads are kept
// as opaque byte slices; encoding them is the caller's job.
package ktx2
