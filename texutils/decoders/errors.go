package decoders

import "github.com/pkg/errors"

// MalformedBlockError is returned for compressed blocks that use reserved or invalid encodings
var MalformedBlockError error = errors.New("compressed block is malformed")

// UnsupportedBlockError is returned for blocks that are valid but outside what the decoders handle,
// such as HDR ASTC endpoints
var UnsupportedBlockError error = errors.New("compressed block uses an unsupported encoding")

// TruncatedDataError is returned when the input ends before the last block of the surface
var TruncatedDataError error = errors.New("compressed data is shorter than the surface")
