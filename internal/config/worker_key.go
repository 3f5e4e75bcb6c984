package config

type WorkerKeyStruct struct {
	SessionSnapshotQueue string
	RefreshStatsQueue    string
}

var WorkerKey = &WorkerKeyStruct{
	SessionSnapshotQueue: "session_snapshot_queue",
	RefreshStatsQueue:    "refresh_stats_queue",
}
