// Package docstore bootstraps a gateway client from configuration.
//
// DOCSTORE_RUNTIME_MODE selects the backend: "http" talks to the server at
// DOCSTORE_API_URL, "mock" keeps everything in memory (optionally primed from
// DOCSTORE_MOCK_SEED), and "auto", the default, picks HTTP when a URL is set
// and falls back to the mock otherwise. The same settings can come from the
// TOML file named by DOCSTORE_CONFIG; environment variables win.
package docstore
