package tui

import "time"

type Snapshot struct {
	Timestamp   time.Time         `json:"timestamp"`
	StorageDir  string            `json:"storageDir"`
	Collections []CollectionState `json:"collections"`
	Sync        SyncState         `json:"sync"`
}

type CollectionState struct {
	Name      string    `json:"name"`
	Exists    bool      `json:"exists"`
	Count     int       `json:"count"`
	FetchedAt time.Time `json:"fetchedAt,omitzero"`
	Size      int64     `json:"size"`
}

type SyncState struct {
	Running    bool      `json:"running"`
	RunID      string    `json:"runId,omitempty"`
	StartedAt  time.Time `json:"startedAt,omitzero"`
	FinishedAt time.Time `json:"finishedAt,omitzero"`
	Files      int       `json:"files"`
	Unchanged  int       `json:"unchanged"`
	Err        string    `json:"error,omitempty"`
}
