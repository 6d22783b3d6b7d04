package service

// optimisticApply snapshots *state, applies the local change, then attempts
// the remote write. If the write fails the snapshot is restored, so the
// in-memory state the caller returns to its client matches what is persisted.
func optimisticApply[S any](state *S, apply func(*S), write func() error) error {
	snapshot := *state
	apply(state)
	if err := write(); err != nil {
		*state = snapshot
		return err
	}
	return nil
}
