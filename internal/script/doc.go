// Package script is the in-memory model of a playable script: an ordered
// list of speech lines and audio clips, with JSON persistence.
package script
