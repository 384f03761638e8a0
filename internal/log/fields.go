package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldClientIP  = "client_ip"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldError     = "error"

	FieldUserID       = "user_id"
	FieldEntryID      = "entry_id"
	FieldTicketID     = "ticket_id"
	FieldDate         = "date"
	FieldRevenueCents = "revenue_cents"
	FieldExpenseCents = "expense_cents"
	FieldRow          = "row"
	FieldSheetsRef    = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentAuth      = "auth"
	ComponentEntry     = "entry"
	ComponentTicket    = "ticket"
	ComponentStats     = "stats"
	ComponentImport    = "import"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
)
