// Package fetch performs the HTTP requests of a walk.
//
// A Client owns one token-bucket limiter. Every document and resource
// request waits on it, so the fixed interval between outbound requests
// holds across processors and rules within a step.
//
// Requests may optionally be routed through a SOCKS5 proxy.
package fetch
