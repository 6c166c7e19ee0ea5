// Package services implements the application use cases: ingesting
// documents into the content store and searching them by vector
// similarity. Services depend only on the driven ports, never on
// concrete adapters.
package services
