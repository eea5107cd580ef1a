// Package speech turns script lines into audio. An Engine synthesizes PCM
// for a named voice; a Speaker resolves voices, caches synthesized audio
// and plays it through an audio.Output, blocking until the line is spoken.
package speech
