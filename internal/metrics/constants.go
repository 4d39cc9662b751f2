package metrics

// Metric names
const (
	MetricNameInstancesProcessed = "sync_instances_processed_total"
	MetricNameRecordsWritten     = "sync_records_written_total"
	MetricNameRemoteCalls        = "remote_calls_total"
	MetricNameRemoteCallDuration = "remote_call_duration_seconds"
	MetricNameRunDuration        = "sync_run_duration_seconds"
)

// Metric help text
const (
	HelpTextInstancesProcessed = "Total number of approval instances processed"
	HelpTextRecordsWritten     = "Total number of destination records written"
	HelpTextRemoteCalls        = "Total number of remote API calls"
	HelpTextRemoteCallDuration = "Remote API call latency in seconds"
	HelpTextRunDuration        = "Wall-clock duration of a sync run in seconds"
)

// Label names
const (
	LabelResult    = "result"
	LabelTable     = "table"
	LabelOp        = "op"
	LabelTarget    = "target"
	LabelOperation = "operation"
	LabelOutcome   = "outcome"
)

// Label values
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"

	TableMain   = "main"
	TableAction = "action"

	OpCreate = "create"
	OpUpdate = "update"

	TargetSource      = "source"
	TargetDestination = "destination"

	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// RemoteCallLatencyBuckets cover the 100ms..30s range remote APIs live in.
var RemoteCallLatencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
