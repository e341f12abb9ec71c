package jobs

// 任务名称常量.
const (
	JobFilesPurgeExpired = "files.purge_expired"
)
