package notify

import "sync"

// Recorder is a Sink that keeps every event in memory.
type Recorder struct {
	mu               sync.Mutex
	Progress         []ProgressEvent
	Alerts           []Alert
	BackupRefreshes  int
	RestoreRefreshes int
}

func (r *Recorder) OnProgress(e ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress = append(r.Progress, e)
}

func (r *Recorder) OnAlert(a Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Alerts = append(r.Alerts, a)
}

func (r *Recorder) RefreshBackupTable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.BackupRefreshes++
}

func (r *Recorder) RefreshRestoreTable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.RestoreRefreshes++
}

// Events returns a copy of the recorded progress events.
func (r *Recorder) Events() []ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ProgressEvent(nil), r.Progress...)
}

// Percents returns the recorded percentage values, skipping lifecycle markers.
func (r *Recorder) Percents() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int
	for _, e := range r.Progress {
		if !e.IsLifecycle() {
			out = append(out, e.Percent)
		}
	}
	return out
}

// AlertList returns a copy of the recorded alerts.
func (r *Recorder) AlertList() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.Alerts...)
}
