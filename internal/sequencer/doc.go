// Package sequencer plays a script from start to finish.
//
// A run walks a snapshot of the script in order. Speech lines and sound
// effects play one at a time and block the run until they end. Background
// clips occupy a single slot that plays underneath whatever follows and
// does not block. Stop ends the run at any point and silences everything.
package sequencer
