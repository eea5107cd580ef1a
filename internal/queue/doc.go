// Package queue warms the speech cache for lines that are about to play.
// It keeps a bounded lookahead of pending lines and synthesizes them one at
// a time in the background so playback does not wait on the engine.
package queue
