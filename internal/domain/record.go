package domain

// MainRecord is the normalized one-row-per-instance shape written to the
// main destination table. Pointer fields are omitted from the upsert payload
// when nil; plain strings are always written, empty or not.
type MainRecord struct {
	InstanceID     string
	TemplateCode   string
	Title          string
	Status         string
	Applicant      string
	ApplicantDept  string
	Amount         *float64
	StartTime      *string
	EndTime        *string
	CurrentNode    string
	LastAction     string
	LastActionTime *string
	ApproverChain  string
}

// Fields returns the destination field map, skipping absent values.
func (r MainRecord) Fields() map[string]any {
	fields := map[string]any{
		"instance_id":    r.InstanceID,
		"template_code":  r.TemplateCode,
		"title":          r.Title,
		"status":         r.Status,
		"applicant":      r.Applicant,
		"applicant_dept": r.ApplicantDept,
		"current_node":   r.CurrentNode,
		"last_action":    r.LastAction,
		"approver_chain": r.ApproverChain,
	}
	if r.Amount != nil {
		fields["amount"] = *r.Amount
	}
	if r.StartTime != nil {
		fields["start_time"] = *r.StartTime
	}
	if r.EndTime != nil {
		fields["end_time"] = *r.EndTime
	}
	if r.LastActionTime != nil {
		fields["last_action_time"] = *r.LastActionTime
	}
	return fields
}

// ActionRecord is one normalized action-history row. Rows are append-only
// inserts; instance_id is a foreign key, not a uniqueness key.
type ActionRecord struct {
	InstanceID string
	NodeName   string
	Approver   string
	Action     string
	ActionTime string
	Comment    string
}

// Fields returns the destination field map for an action row.
func (r ActionRecord) Fields() map[string]any {
	return map[string]any{
		"instance_id": r.InstanceID,
		"node_name":   r.NodeName,
		"approver":    r.Approver,
		"action":      r.Action,
		"action_time": r.ActionTime,
		"comment":     r.Comment,
	}
}

// TableRecord is a destination row: a record identifier (empty for rows that
// do not exist yet) plus its field map.
type TableRecord struct {
	RecordID string
	Fields   map[string]any
}

// BatchResult separates the outcomes of a mixed batch upsert.
type BatchResult struct {
	CreatedIDs []string
	UpdatedIDs []string
}
