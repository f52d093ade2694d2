// Package app wires the auction layer's domain services, storage, and
// lifecycle management into a single application façade consumed by the HTTP
// API and the auctiond entrypoint.
package app
