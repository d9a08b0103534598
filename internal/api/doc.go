// Package api defines the transport types shared by the daemon's HTTP
// surface and its clients.
package api
