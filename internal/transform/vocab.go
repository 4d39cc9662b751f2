package transform

// statusLabels maps source approval status codes to display labels. The
// enumeration is closed; unknown codes pass through unmodified.
var statusLabels = map[string]string{
	"RUNNING":    "审批中",
	"FINISHED":   "已同意",
	"TERMINATED": "已拒绝",
	"REVOKED":    "已撤销",
	"CANCELED":   "已取消",
}

// actionLabels maps source action-type codes to display labels.
var actionLabels = map[string]string{
	"EXECUTE_TASK_NORMAL":        "同意",
	"EXECUTE_TASK_AGENT":         "代同意",
	"APPEND_TASK_BEFORE":         "前加签",
	"APPEND_TASK_AFTER":          "后加签",
	"REDIRECT_TASK":              "转交",
	"START_PROCESS_INSTANCE":     "发起",
	"TERMINATE_PROCESS_INSTANCE": "终止",
	"REVOKE_PROCESS_INSTANCE":    "撤销",
	"FINISH_PROCESS_INSTANCE":    "完成",
	"ADD_REMARK":                 "评论",
	"DELETE":                     "删除",
}

// StatusLabel translates a status code, passing unknown codes through.
func StatusLabel(code string) string {
	if label, ok := statusLabels[code]; ok {
		return label
	}
	return code
}

// ActionLabel translates an action-type code, passing unknown codes through.
func ActionLabel(code string) string {
	if label, ok := actionLabels[code]; ok {
		return label
	}
	return code
}
