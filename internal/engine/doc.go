// Package engine talks to the external lasR engine.
//
// The engine is a separate program that receives a pipeline document and
// answers with JSON. Two transports are provided: Subprocess runs the engine
// binary once per request, SocketIO keeps a connection to an engine service
// and sends requests as socket.io events. Both satisfy Engine, which is all
// the executor depends on.
package engine
