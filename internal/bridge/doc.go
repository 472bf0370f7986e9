// Package bridge keeps one Egon web module under continuous observation and
// streams its state to other programs.
//
// The bridge initializes the module once, then polls it on an interval.
// Every poll that changes at least one element produces a "state" event
// which is broadcast to attached WebSocket clients and handed to every
// Publisher (NATS when a URL is configured).
//
// # HTTP Surface
//
//	GET /ws             WebSocket stream; a "snapshot" event is sent on attach
//	GET /configuration  current elements and groups as JSON
//	GET /healthz        status of the last poll
//
// Clients send commands over the WebSocket:
//
//	{"type": "action", "id": "12", "action": "ON"}
//
// and receive {"type": "action_result", "id": "12", "action": "ON", "ok": true}.
//
// # Slow Clients
//
// Each client has a bounded send queue. A client whose queue is full when
// an event is broadcast is detached and its connection closed.
//
// # Discovery
//
// With Config.Advertise set the bridge registers itself as
// _egon-bridge._tcp over mDNS; "egon bridges" lists running bridges.
package bridge
