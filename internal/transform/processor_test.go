package transform

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncline-io/approvalsync/internal/domain"
)

func int64Ptr(v int64) *int64 { return &v }

func TestMillisToString(t *testing.T) {
	assert.Nil(t, MillisToString(nil))

	got := MillisToString(int64Ptr(1705285800000))
	require.NotNil(t, got)
	// Local-time rendering; only assert the fixed shape.
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`, *got)
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"RUNNING", "审批中"},
		{"FINISHED", "已同意"},
		{"TERMINATED", "已拒绝"},
		{"REVOKED", "已撤销"},
		{"CANCELED", "已取消"},
		{"FOO", "FOO"}, // unknown codes pass through
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusLabel(tt.code), tt.code)
	}
}

func TestActionLabel(t *testing.T) {
	assert.Equal(t, "同意", ActionLabel("EXECUTE_TASK_NORMAL"))
	assert.Equal(t, "转交", ActionLabel("REDIRECT_TASK"))
	assert.Equal(t, "SOMETHING_NEW", ActionLabel("SOMETHING_NEW"))
}

func TestExtractFormValueFirstMatchWins(t *testing.T) {
	fields := []domain.FormField{
		{Name: "金额", Value: domain.StringValue("5000")},
		{Name: "amount", Value: domain.StringValue("9999")},
	}

	got, ok := ExtractFormValue(fields, "金额")
	require.True(t, ok)
	assert.Equal(t, "5000", got)
}

func TestExtractFormValueMatchesComponentName(t *testing.T) {
	fields := []domain.FormField{
		{ComponentName: "amount", Value: domain.NumberValue(1234)},
	}

	got, ok := ExtractFormValue(fields, "amount")
	require.True(t, ok)
	assert.Equal(t, "1234", got)
}

func TestExtractFormValueNotFound(t *testing.T) {
	fields := []domain.FormField{{Name: "金额", Value: domain.StringValue("5000")}}

	_, ok := ExtractFormValue(fields, "不存在")
	assert.False(t, ok)
}

func TestExtractFormValueListJoined(t *testing.T) {
	fields := []domain.FormField{{Name: "tags", Value: domain.ListValue("A", "B", "C")}}

	got, ok := ExtractFormValue(fields, "tags")
	require.True(t, ok)
	assert.Equal(t, "A, B, C", got)
}

func TestExtractFormValueEmptyListIsAbsent(t *testing.T) {
	fields := []domain.FormField{{Name: "tags", Value: domain.ListValue()}}

	_, ok := ExtractFormValue(fields, "tags")
	assert.False(t, ok, "empty list must extract as absent, not empty string")
}

func TestExtractFormValueObjectText(t *testing.T) {
	fields := []domain.FormField{
		{Name: "dept", Value: domain.ObjectValue("技术部", `{"text":"技术部","id":7}`)},
	}

	got, ok := ExtractFormValue(fields, "dept")
	require.True(t, ok)
	assert.Equal(t, "技术部", got)
}

func TestFieldValueUnmarshalShapes(t *testing.T) {
	var field domain.FormField
	raw := `{"name":"attachments","value":[{"text":"a.pdf"},"b.pdf",3]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &field))
	assert.Equal(t, domain.FieldList, field.Value.Kind)
	assert.Len(t, field.Value.List, 3)

	var numField domain.FormField
	require.NoError(t, json.Unmarshal([]byte(`{"name":"n","value":12.5}`), &numField))
	assert.Equal(t, domain.FieldNumber, numField.Value.Kind)
	assert.Equal(t, 12.5, numField.Value.Num)

	var nullField domain.FormField
	require.NoError(t, json.Unmarshal([]byte(`{"name":"x","value":null}`), &nullField))
	assert.True(t, nullField.Value.IsAbsent())
}

func TestNormalizeFieldValueNumber(t *testing.T) {
	got := NormalizeFieldValue(domain.StringValue("1,234.56"), "number")
	require.Equal(t, domain.FieldNumber, got.Kind)
	assert.Equal(t, 1234.56, got.Num)

	assert.True(t, NormalizeFieldValue(domain.StringValue("abc"), "number").IsAbsent())
	assert.True(t, NormalizeFieldValue(domain.FieldValue{}, "number").IsAbsent())
}

func TestNormalizeFieldValueText(t *testing.T) {
	// Absent, empty string and a value are three distinct outcomes.
	assert.True(t, NormalizeFieldValue(domain.FieldValue{}, "text").IsAbsent())

	empty := NormalizeFieldValue(domain.StringValue(""), "text")
	require.Equal(t, domain.FieldString, empty.Kind)
	assert.Equal(t, "", empty.Str)

	got := NormalizeFieldValue(domain.StringValue("hello"), "text")
	assert.Equal(t, "hello", got.Str)
}

func TestNormalizeFieldValueDate(t *testing.T) {
	got := NormalizeFieldValue(domain.StringValue("2024-01-15"), "date")
	assert.Equal(t, "2024-01-15", got.Str)

	stringified := NormalizeFieldValue(domain.NumberValue(20240115), "datetime")
	require.Equal(t, domain.FieldString, stringified.Kind)
	assert.Equal(t, "20240115", stringified.Str)
}

func TestBuildMainRecordBasic(t *testing.T) {
	detail := &domain.InstanceDetail{
		InstanceID:         "test-001",
		Title:              "出差审批",
		Status:             "FINISHED",
		OriginatorUserName: "张三",
		OriginatorDeptName: "技术部",
		CreateTime:         int64Ptr(1705285800000),
		FinishTime:         int64Ptr(1705372200000),
		ProcessCode:        "PROC-001",
		FormComponentValues: []domain.FormField{
			{Name: "金额", Value: domain.StringValue("5,000")},
		},
	}

	rec := BuildMainRecord(detail)
	assert.Equal(t, "test-001", rec.InstanceID)
	assert.Equal(t, "PROC-001", rec.TemplateCode)
	assert.Equal(t, "出差审批", rec.Title)
	assert.Equal(t, "已同意", rec.Status)
	assert.Equal(t, "张三", rec.Applicant)
	assert.Equal(t, "技术部", rec.ApplicantDept)
	require.NotNil(t, rec.Amount)
	assert.Equal(t, 5000.0, *rec.Amount)
	require.NotNil(t, rec.StartTime)
	require.NotNil(t, rec.EndTime)
}

func TestBuildMainRecordApplicantFallsBackToUserID(t *testing.T) {
	rec := BuildMainRecord(&domain.InstanceDetail{OriginatorUserID: "uid-9"})
	assert.Equal(t, "uid-9", rec.Applicant)
}

func TestBuildMainRecordAmountParseFailureIsAbsent(t *testing.T) {
	detail := &domain.InstanceDetail{
		FormComponentValues: []domain.FormField{
			{Name: "金额", Value: domain.StringValue("五千")},
		},
	}
	assert.Nil(t, BuildMainRecord(detail).Amount)
}

func TestBuildMainRecordAmountFallbackName(t *testing.T) {
	detail := &domain.InstanceDetail{
		FormComponentValues: []domain.FormField{
			{Name: "备注", Value: domain.StringValue("n/a")},
			{ComponentName: "amount", Value: domain.NumberValue(88.5)},
		},
	}
	rec := BuildMainRecord(detail)
	require.NotNil(t, rec.Amount)
	assert.Equal(t, 88.5, *rec.Amount)
}

func TestBuildMainRecordCurrentNodeIsFirstRunningInListOrder(t *testing.T) {
	detail := &domain.InstanceDetail{
		Tasks: []domain.Task{
			{TaskName: "财务审批", Status: "FINISHED", CreateTime: int64Ptr(300)},
			{TaskName: "部门审批", Status: "RUNNING", CreateTime: int64Ptr(100)},
			{TaskName: "总经理审批", Status: "RUNNING", CreateTime: int64Ptr(50)},
		},
	}
	assert.Equal(t, "部门审批", BuildMainRecord(detail).CurrentNode)
}

func TestBuildMainRecordLastActionFirstMaximalWins(t *testing.T) {
	detail := &domain.InstanceDetail{
		Tasks: []domain.Task{
			{ActionType: "EXECUTE_TASK_NORMAL", FinishTime: int64Ptr(900)},
			{ActionType: "REDIRECT_TASK", FinishTime: int64Ptr(900)},
			{ActionType: "ADD_REMARK", FinishTime: int64Ptr(100)},
		},
	}
	rec := BuildMainRecord(detail)
	assert.Equal(t, "同意", rec.LastAction)
	require.NotNil(t, rec.LastActionTime)
}

func TestBuildMainRecordNoFinishedTaskMeansNoLastAction(t *testing.T) {
	detail := &domain.InstanceDetail{
		Tasks: []domain.Task{
			{ActionType: "EXECUTE_TASK_NORMAL", Status: "RUNNING", CreateTime: int64Ptr(10)},
		},
	}
	rec := BuildMainRecord(detail)
	assert.Equal(t, "", rec.LastAction)
	assert.Nil(t, rec.LastActionTime)
}

func TestApproverChainStableOrder(t *testing.T) {
	detail := &domain.InstanceDetail{
		Tasks: []domain.Task{
			{UserName: "C", CreateTime: int64Ptr(200)},
			{UserName: "A", CreateTime: int64Ptr(100)},
			{UserName: "B", CreateTime: int64Ptr(100)}, // tied with A, keeps input order
		},
	}
	assert.Equal(t, "A > B > C", BuildMainRecord(detail).ApproverChain)
}

func TestApproverChainDeduplicatesByName(t *testing.T) {
	detail := &domain.InstanceDetail{
		Tasks: []domain.Task{
			{UserName: "李四", CreateTime: int64Ptr(1)},
			{UserName: "王五", CreateTime: int64Ptr(2)},
			{UserName: "李四", CreateTime: int64Ptr(3)},
			{UserName: "", CreateTime: int64Ptr(4)},
		},
	}
	assert.Equal(t, "李四 > 王五", BuildMainRecord(detail).ApproverChain)
}

func TestBuildMainRecordMinimalInstance(t *testing.T) {
	rec := BuildMainRecord(&domain.InstanceDetail{})

	assert.Equal(t, "", rec.InstanceID)
	assert.Nil(t, rec.Amount)
	assert.Equal(t, "", rec.CurrentNode)
	assert.Equal(t, "", rec.LastAction)
	assert.Nil(t, rec.LastActionTime)
	assert.Equal(t, "", rec.ApproverChain)
	assert.Nil(t, rec.StartTime)
	assert.Nil(t, rec.EndTime)
}

func TestBuildActionRecords(t *testing.T) {
	detail := &domain.InstanceDetail{
		InstanceID: "test-001",
		Tasks: []domain.Task{
			{
				TaskName:   "部门审批",
				UserName:   "李四",
				ActionType: "EXECUTE_TASK_NORMAL",
				CreateTime: int64Ptr(1705285800000),
				FinishTime: int64Ptr(1705286400000),
				Comment:    "同意",
			},
			{
				TaskName:    "财务审批",
				UserName:    "王五",
				ActionType:  "REDIRECT_TASK",
				CreateTime:  int64Ptr(1705286400000),
				TaskComment: "转交处理",
			},
		},
	}

	actions := BuildActionRecords(detail)
	require.Len(t, actions, 2)

	assert.Equal(t, "test-001", actions[0].InstanceID)
	assert.Equal(t, "部门审批", actions[0].NodeName)
	assert.Equal(t, "李四", actions[0].Approver)
	assert.Equal(t, "同意", actions[0].Action)
	assert.Equal(t, "同意", actions[0].Comment)
	require.NotNil(t, MillisToString(detail.Tasks[0].FinishTime))
	assert.Equal(t, *MillisToString(detail.Tasks[0].FinishTime), actions[0].ActionTime)

	// Second task has no finish time: action_time falls back to create time,
	// comment falls back to task_comment.
	assert.Equal(t, *MillisToString(detail.Tasks[1].CreateTime), actions[1].ActionTime)
	assert.Equal(t, "转交处理", actions[1].Comment)
}

func TestBuildActionRecordsEmptyTasks(t *testing.T) {
	actions := BuildActionRecords(&domain.InstanceDetail{InstanceID: "x"})
	assert.Empty(t, actions)
}

func TestMainRecordFieldsSkipsAbsentValues(t *testing.T) {
	rec := BuildMainRecord(&domain.InstanceDetail{InstanceID: "a"})
	fields := rec.Fields()

	assert.Contains(t, fields, "instance_id")
	assert.Contains(t, fields, "current_node")
	assert.NotContains(t, fields, "amount")
	assert.NotContains(t, fields, "start_time")
	assert.NotContains(t, fields, "last_action_time")
}
