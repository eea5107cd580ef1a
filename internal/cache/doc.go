// Package cache holds decoded and synthesized audio. An in-memory LRU
// (L1) keeps clip PCM and recent speech for the running process, and a
// zstd-compressed disk cache (L2) keeps synthesized speech between runs so
// replaying a script does not call the voice engine again.
package cache
