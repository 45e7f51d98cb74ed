// Package websocket provides real-time Homer message streaming via WebSocket.
//
// Clients connect to /homer/ws and receive every newly received notification
// as a Homer message JSON text frame.
package websocket
