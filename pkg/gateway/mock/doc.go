// Package mock provides an in-memory gateway.Backend. It is used by tests,
// by the mock runtime mode and, behind an HTTP router, by the sandbox
// server. All methods are safe for concurrent use.
package mock
