// Package engines contains the speech engines: Piper (offline neural
// voices), gTTS (Google Translate voices via gtts-cli), a generic JSON
// exec protocol, and a silent mock for tests and dry runs.
package engines
