// Package protocol defines the control channel vocabulary spoken with the
// remote conversational-speech service.
//
// Inbound text frames are JSON objects tagged by "type" and decode into a
// ControlEvent with a closed Kind set. Types this package does not know decode
// to KindUnknown instead of failing so the remote side can add event types
// without breaking older clients. Outbound messages are plain structs that
// marshal to the matching JSON shape.
package protocol
