// Package memory provides typed object pools for hot-path buffers,
// such as the frames the request journal encodes on every append.
package memory
