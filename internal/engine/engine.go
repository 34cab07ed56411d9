// Package engine reconciles authority-reported certificate state into the
// local store. The store is a cache of last known status, not a source of
// truth: it is eventually consistent with the authority, and the engine is
// its only writer.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"

	"certsync/internal/db/repository"
	"certsync/internal/models"
)

// Authority is the subset of the authority client the engine drives
type Authority interface {
	Create(ctx context.Context, hostname string) (*models.Record, error)
	Lookup(ctx context.Context, hostname string) (*models.Record, error)
	Patch(ctx context.Context, id string, settings json.RawMessage) (*models.Record, error)
	Delete(ctx context.Context, id string) (json.RawMessage, error)
}

// Poller resolves an id to the latest authority record, retrying
// transient failures
type Poller interface {
	Poll(ctx context.Context, id string) (*models.Record, error)
}

// Engine orchestrates provisioning against the authority and keeps the
// record store current
type Engine struct {
	authority Authority
	poller    Poller
	records   *repository.RecordRepository
	log       *slog.Logger
}

// New creates a new reconciliation engine
func New(auth Authority, poller Poller, records *repository.RecordRepository, log *slog.Logger) *Engine {
	return &Engine{
		authority: auth,
		poller:    poller,
		records:   records,
		log:       log,
	}
}

// Create registers hostname with the authority, stores a pending record,
// and returns it immediately. Reconciliation of the real status happens in
// a detached background task; its outcome is never surfaced to the caller.
func (e *Engine) Create(ctx context.Context, hostname string) (*models.Record, error) {
	if hostname == "" {
		return nil, ErrHostnameRequired
	}

	created, err := e.authority.Create(ctx, hostname)
	if err != nil {
		return nil, err
	}

	// Status is forced to pending; whatever the authority reported at
	// create time is picked up by the background poll.
	rec := &models.Record{
		ID:       created.ID,
		Hostname: created.Hostname,
		Status:   models.StatusPending,
	}
	if rec.Hostname == "" {
		rec.Hostname = hostname
	}
	if err := e.records.Upsert(rec); err != nil {
		return nil, err
	}

	go e.reconcile(rec.ID)

	return rec, nil
}

// reconcile runs detached from any request. It is fire-and-forget: there
// is no cancellation, no backpressure, and failures land in the log while
// the stored record keeps its last known status. A Delete racing with an
// in-flight reconciliation may see the record resurrected by the final
// upsert; a later redesign should key a cancellation token by record id.
func (e *Engine) reconcile(id string) {
	rec, err := e.poller.Poll(context.Background(), id)
	if err != nil {
		e.log.Error("background reconciliation abandoned",
			"id", id,
			"error", err,
		)
		return
	}

	if err := e.records.Upsert(rec); err != nil {
		e.log.Error("failed to store reconciled status",
			"id", id,
			"status", rec.Status,
			"error", err,
		)
		return
	}

	e.log.Info("certificate status reconciled", "id", id, "status", rec.Status)
}

// Read returns the locally cached record for hostname, which may be
// stale. On a local miss it falls back to a live authority lookup without
// writing the result back; caching a filtered lookup would store a row
// whose id binding the engine never confirmed.
func (e *Engine) Read(ctx context.Context, hostname string) (*models.Record, error) {
	rec, err := e.records.GetByHostname(hostname)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}

	remote, err := e.authority.Lookup(ctx, hostname)
	if err != nil {
		return nil, err
	}
	if remote == nil {
		return nil, ErrNotFound
	}
	return remote, nil
}

// Recheck synchronously polls the authority for hostname's current status
// and stores it. The caller blocks for the full poll; exhaustion is
// surfaced, unlike on the create path.
func (e *Engine) Recheck(ctx context.Context, hostname string) (*models.Record, error) {
	rec, err := e.records.GetByHostname(hostname)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}

	fetched, err := e.poller.Poll(ctx, rec.ID)
	if err != nil {
		return nil, err
	}

	if err := e.records.Upsert(fetched); err != nil {
		return nil, err
	}
	return fetched, nil
}

// UpdateSettings patches the certificate settings at the authority and
// stores the returned record. There is no local existence check: an
// unknown id is the authority's error to report.
func (e *Engine) UpdateSettings(ctx context.Context, id string, settings json.RawMessage) (*models.Record, error) {
	patched, err := e.authority.Patch(ctx, id, settings)
	if err != nil {
		return nil, err
	}

	if patched.ID == "" {
		patched.ID = id
	}
	if err := e.records.Upsert(patched); err != nil {
		return nil, err
	}
	return patched, nil
}

// Delete removes the certificate at the authority and drops the local
// row. A non-error authority response is trusted as success even if its
// body reports a partial result.
func (e *Engine) Delete(ctx context.Context, id string) (json.RawMessage, error) {
	result, err := e.authority.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := e.records.DeleteByID(id); err != nil {
		return nil, err
	}
	return result, nil
}

// List returns all locally tracked records, most recently created first.
// It never touches the authority.
func (e *Engine) List() ([]*models.Record, error) {
	return e.records.List()
}
