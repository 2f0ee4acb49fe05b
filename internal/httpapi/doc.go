// Package httpapi exposes the signer and the ledger over HTTP with gin.
//
// The signer keeps the flat {error: "..."} body its browser clients
// expect. Ledger routes live under /v1 and report rejections as
// {error: {code, message, details}} with the status chosen by error kind.
package httpapi
