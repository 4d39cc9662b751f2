package domain

// InstanceSummary is one row of a paginated approval-instance listing.
// Only the identifier is guaranteed to be present; items without one are
// skipped by the sync engine.
type InstanceSummary struct {
	InstanceID string `json:"process_instance_id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
}

// InstanceDetail is the full approval instance as returned by the source
// platform, including form fields and the ordered task history.
type InstanceDetail struct {
	InstanceID          string      `json:"process_instance_id"`
	Title               string      `json:"title"`
	Status              string      `json:"status"`
	OriginatorDeptName  string      `json:"originator_dept_name"`
	OriginatorUserID    string      `json:"originator_userid"`
	OriginatorUserName  string      `json:"originator_user_name"`
	CreateTime          *int64      `json:"create_time"`
	FinishTime          *int64      `json:"finish_time"`
	ProcessCode         string      `json:"process_code"`
	FormComponentValues []FormField `json:"form_component_values"`
	Tasks               []Task      `json:"tasks"`
}

// Task is one step in an instance's action history. Timestamps are
// millisecond epochs; a nil FinishTime means the task has not completed.
type Task struct {
	TaskName    string `json:"task_name"`
	UserName    string `json:"user_name"`
	ActionType  string `json:"action_type"`
	Status      string `json:"status"`
	CreateTime  *int64 `json:"create_time"`
	FinishTime  *int64 `json:"finish_time"`
	Comment     string `json:"comment"`
	TaskComment string `json:"task_comment"`
}

// TaskStatusRunning marks a task that is still waiting on its actor.
const TaskStatusRunning = "RUNNING"

// FormField is one entry of an instance's form. The value is polymorphic on
// the wire (scalar, list or nested object), so it is held as a FieldValue.
type FormField struct {
	Name          string     `json:"name"`
	ComponentName string     `json:"component_name"`
	Value         FieldValue `json:"value"`
}

// SourceUser is the minimal user profile exposed by the source platform.
type SourceUser struct {
	UserID string `json:"userid"`
	Name   string `json:"name"`
	Title  string `json:"title"`
	Mobile string `json:"mobile"`
}
