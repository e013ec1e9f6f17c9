// Package audio calls the OpenAI audio endpoints: transcription,
// translation, and speech synthesis.
//
// Transcription and translation return both the convenience text and the
// raw payload, because the response shape depends on the response_format
// the caller asked for. Speech output streams straight to the caller's
// writer so large clips never sit in memory.
package audio
