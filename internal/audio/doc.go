// Package audio provides cross-platform audio playback using the oto/v3
// library. It decodes uploaded clips to PCM, converts them to the output
// device format, and plays any number of overlapping tracks on one device.
package audio
