package mysql

// Repository aggregates all MySQL repositories
type Repository struct {
	ds *Datastore

	WorkerStatus *WorkerStatusRepository
	ScriptLog    *ScriptLogRepository
}

// NewRepository creates a new MySQL repository with all sub-repositories
func NewRepository(dsn string) (*Repository, error) {
	ds, err := NewDatastore(dsn)
	if err != nil {
		return nil, err
	}

	return &Repository{
		ds:           ds,
		WorkerStatus: NewWorkerStatusRepository(ds),
		ScriptLog:    NewScriptLogRepository(ds),
	}, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.ds.Close()
}
