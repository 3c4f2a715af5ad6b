package logging

// Standardized structured logging keys.
const (
	FieldComponent    = "component"
	FieldRunID        = "run_id"
	FieldTile         = "tile"
	FieldStage        = "stage"
	FieldCrossSection = "cross_section"
	FieldFrame        = "frame"
	FieldEventType    = "event_type"
	FieldDecisionType = "decision_type"
	FieldErrorHint    = "error_hint"
	FieldErrorCode    = "error_code"
	FieldAlert        = "alert"

	FieldProgressStage   = "progress_stage"
	FieldProgressPercent = "progress_percent"
	FieldProgressMessage = "progress_message"
)
