// Package transform maps raw approval-instance detail into normalized
// destination records. Everything here is pure: no I/O, no clock, no
// randomness.
package transform

import (
	"sort"
	"strconv"
	"strings"

	"github.com/syncline-io/approvalsync/internal/domain"
)

// amountFieldNames are tried in order when extracting the approval amount.
var amountFieldNames = []string{"金额", "amount"}

// MillisToString converts a millisecond epoch to a fixed-format local-time
// string. A nil input yields nil.
func MillisToString(ms *int64) *string {
	if ms == nil {
		return nil
	}
	s := domain.TimeFromMillis(*ms).Format(domain.TimeLayout)
	return &s
}

// ExtractFormValue scans fields in order and returns the coerced value of
// the first field whose display name or component identifier equals key.
// The boolean is false when no field matches or the matched value coerces to
// absent (nil value, empty list).
func ExtractFormValue(fields []domain.FormField, key string) (string, bool) {
	for _, f := range fields {
		if f.Name == key || f.ComponentName == key {
			return f.Value.Coerce()
		}
	}
	return "", false
}

// NormalizeFieldValue applies the destination field-type coercion rules:
// number fields parse after stripping thousands separators (absent on
// failure), date/datetime fields pass strings through and stringify anything
// else, and text fields stringify non-absent values. Absent stays absent and
// an empty string stays an empty string; the two are distinct outcomes.
func NormalizeFieldValue(v domain.FieldValue, fieldType string) domain.FieldValue {
	if v.IsAbsent() {
		return domain.FieldValue{}
	}

	switch fieldType {
	case "number":
		s, ok := v.Coerce()
		if !ok {
			return domain.FieldValue{}
		}
		n, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			return domain.FieldValue{}
		}
		return domain.NumberValue(n)
	case "date", "datetime":
		if v.Kind == domain.FieldString {
			return v
		}
		s, ok := v.Coerce()
		if !ok {
			return domain.FieldValue{}
		}
		return domain.StringValue(s)
	default:
		s, ok := v.Coerce()
		if !ok {
			return domain.FieldValue{}
		}
		return domain.StringValue(s)
	}
}

// parseAmount strips thousands separators and parses a float. Returns nil on
// failure rather than zero so a bad amount never masquerades as a real one.
func parseAmount(s string) *float64 {
	n, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return nil
	}
	return &n
}

// BuildMainRecord derives the normalized one-row-per-instance record. It is
// recomputed in full from raw data on every pass; there is no partial merge.
func BuildMainRecord(detail *domain.InstanceDetail) domain.MainRecord {
	rec := domain.MainRecord{
		InstanceID:    detail.InstanceID,
		TemplateCode:  detail.ProcessCode,
		Title:         detail.Title,
		Status:        StatusLabel(detail.Status),
		Applicant:     detail.OriginatorUserName,
		ApplicantDept: detail.OriginatorDeptName,
		StartTime:     MillisToString(detail.CreateTime),
		EndTime:       MillisToString(detail.FinishTime),
	}
	if rec.Applicant == "" {
		rec.Applicant = detail.OriginatorUserID
	}

	rec.Amount = extractAmount(detail.FormComponentValues)
	rec.CurrentNode = currentNode(detail.Tasks)
	rec.LastAction, rec.LastActionTime = lastAction(detail.Tasks)
	rec.ApproverChain = approverChain(detail.Tasks)
	return rec
}

// BuildActionRecords derives one append-only action row per task, preserving
// the original task order.
func BuildActionRecords(detail *domain.InstanceDetail) []domain.ActionRecord {
	records := make([]domain.ActionRecord, 0, len(detail.Tasks))
	for _, task := range detail.Tasks {
		actionTime := ""
		if s := MillisToString(task.FinishTime); s != nil {
			actionTime = *s
		} else if s := MillisToString(task.CreateTime); s != nil {
			actionTime = *s
		}

		comment := task.Comment
		if comment == "" {
			comment = task.TaskComment
		}

		records = append(records, domain.ActionRecord{
			InstanceID: detail.InstanceID,
			NodeName:   task.TaskName,
			Approver:   task.UserName,
			Action:     ActionLabel(task.ActionType),
			ActionTime: actionTime,
			Comment:    comment,
		})
	}
	return records
}

// extractAmount tries the localized field name first, then the English
// fallback. A parse failure yields nil, never zero.
func extractAmount(fields []domain.FormField) *float64 {
	for _, name := range amountFieldNames {
		if s, ok := ExtractFormValue(fields, name); ok && s != "" {
			return parseAmount(s)
		}
	}
	return nil
}

// currentNode is the name of the first still-running task in list order, not
// time order.
func currentNode(tasks []domain.Task) string {
	for _, t := range tasks {
		if t.Status == domain.TaskStatusRunning {
			return t.TaskName
		}
	}
	return ""
}

// lastAction finds the finished task with the maximum finish time; ties keep
// the earliest such task in input order. No finished task means both results
// stay absent.
func lastAction(tasks []domain.Task) (string, *string) {
	var last *domain.Task
	for i := range tasks {
		t := &tasks[i]
		if t.FinishTime == nil {
			continue
		}
		if last == nil || *t.FinishTime > *last.FinishTime {
			last = t
		}
	}
	if last == nil {
		return "", nil
	}
	return ActionLabel(last.ActionType), MillisToString(last.FinishTime)
}

// approverChain joins distinct approver names in creation-time order. The
// sort must be stable so ties keep their original relative order.
func approverChain(tasks []domain.Task) string {
	ordered := make([]domain.Task, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return createMillis(ordered[i]) < createMillis(ordered[j])
	})

	seen := make(map[string]struct{}, len(ordered))
	var names []string
	for _, t := range ordered {
		if t.UserName == "" {
			continue
		}
		if _, dup := seen[t.UserName]; dup {
			continue
		}
		seen[t.UserName] = struct{}{}
		names = append(names, t.UserName)
	}
	return strings.Join(names, " > ")
}

func createMillis(t domain.Task) int64 {
	if t.CreateTime == nil {
		return 0
	}
	return *t.CreateTime
}
