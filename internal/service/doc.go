// Package service implements edition to title relation maintenance.
//
// # Reconciliation
//
// ReconcileService.Reconcile reads an edition's MODS metadata, asks the
// title index which titles the edition should be linked to, lists the titles
// it is linked to now, and adds and removes relations until both sets are
// equal. Running it again without intervening changes writes nothing.
//
// # Published Editions
//
// The repository refuses relation changes on published editions. When that
// happens the edition is unpublished, the write is retried once, and the
// edition is republished whether or not the retry succeeded.
//
// # Batches
//
// BatchRunner reconciles many distinct editions concurrently and records one
// ItemResult per edition; one failing edition does not stop the rest.
//
// # Event System
//
// Services publish events via EventBus (relation added/removed, edition
// unpublished/republished, edition reconciled/failed) for callers that want
// to stream progress.
package service
