// Package temporal provides the Temporal client and worker infrastructure
// for the petition document service. Workflow and activity implementations
// live in the workflows and activities subpackages.
//
// Signal and query names, the shared workflow input type, and the error
// mapping from Temporal service errors to sentinel errors are defined here
// so the server layer can interact with running workflows without importing
// the workflows package.
package temporal
