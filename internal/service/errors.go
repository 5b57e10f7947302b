package service

import "errors"

// ErrUnknownWorker reports a worker name outside the configured allow-list.
// Handlers surface it as a not-found outcome, distinct from authorization
// failures.
var ErrUnknownWorker = errors.New("unknown worker")
