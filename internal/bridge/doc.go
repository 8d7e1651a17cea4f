// Package bridge connects SAM to an external chat bridge over a websocket.
//
// The bridge process owns the chat account (for example a whatsapp-web.js
// instance) and exchanges JSON frames with SAM:
//
//	inbound  {"event":"message","message":{...}}
//	inbound  {"event":"media","request_id":"...","media":{...}}
//	inbound  {"event":"ack","request_id":"...","ok":true}
//	outbound {"action":"reply"|"send_file"|"download_media","request_id":"...",...}
//
// Every outbound action carries a request ID and blocks until the matching
// ack or media frame arrives, or the request times out. Inbound messages are
// handed to the chat.Handler one at a time, in arrival order, on a goroutine
// separate from the socket reader so handlers can issue requests.
package bridge
