package logging

// Standardized field names for structured logging. Using these constants keeps
// log output consistent across pipeline stages so runs can be filtered by
// statement, batch or period.
const (
	FieldFile        = "file_path"
	FieldBank        = "bank"
	FieldStatementID = "statement_id"
	FieldUserID      = "user_id"
	FieldStage       = "stage"
	FieldChunk       = "chunk"
	FieldBatch       = "batch"
	FieldPeriodID    = "period_id"
	FieldCategory    = "category"
	FieldCount       = "count"
	FieldAmount      = "amount"
	FieldConfidence  = "confidence"
	FieldModel       = "model"
	FieldDuration    = "duration_ms"
	FieldOutputFile  = "output_file"
)
