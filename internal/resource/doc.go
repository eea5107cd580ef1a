// Package resource owns playable handles for uploaded audio clips.
//
// Clips are stored in scripts as base64 data URIs. A Handle is the
// process-lifetime counterpart: the raw file bytes parsed out of the URI,
// decoded to device PCM on first use. Handles are released exactly once.
package resource
