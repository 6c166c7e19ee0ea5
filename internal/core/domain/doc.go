// Package domain contains the core entities of the vector store:
// documents, chunks, embeddings, and the value types exchanged between
// the ingestion and search services and their adapters.
package domain
