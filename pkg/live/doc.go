// Package live implements the client-side controller for a bidirectional
// audio and video conversation with a remote multimodal inference service.
//
// A Session streams microphone PCM and periodically sampled camera frames to
// the remote, and folds the inbound stream back into three pieces of
// observable state: gapless speech playback, an incremental two-lane
// transcript, and a set of expiring highlight boxes driven by tool calls.
// Inbound frames are processed strictly in arrival order by a single
// dispatch goroutine.
//
// The transport is abstracted behind RemoteSession and Connector;
// NewGeminiConnector provides the production implementation backed by
// pkg/gemini.
package live
