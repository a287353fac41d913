// Package services defines the error taxonomy shared by the upload pipeline
// and the concrete service clients, plus context annotations used to carry
// task and batch identifiers into structured logs.
package services
