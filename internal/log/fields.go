package log

// Attribute keys.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldCommand    = "command"
	FieldRevision   = "revision"
	FieldKid        = "kid"
	FieldSlot       = "slot"
	FieldBackend    = "backend"
	FieldCache      = "cache"
	FieldCount      = "count"
	FieldAmount     = "amount"
	FieldNoticeID   = "notice_id"
)

const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentBoard    = "scoreboard"
	ComponentPersist  = "persist"
	ComponentAMQP     = "amqp"
	ComponentNotifier = "notifier"
	ComponentSheets   = "sheets"
	ComponentCache    = "cache"
	ComponentSecurity = "security"
	ComponentTrace    = "trace"
	ComponentBackend  = "backend"
	ComponentTemplate = "template"
	ComponentCLI      = "cli"
)

const (
	OpSave     = "save"
	OpApply    = "apply"
	OpRollover = "rollover"
	OpRender   = "render"
	OpShutdown = "shutdown"
)

// LogFields collects attributes for one record. The With methods mutate and
// return the receiver so calls chain.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError is a no-op for a nil err.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithCommand records the command name and each argument as arg_<name>.
func (f LogFields) WithCommand(name string, args map[string]string) LogFields {
	f[FieldCommand] = name
	for k, v := range args {
		f["arg_"+k] = v
	}
	return f
}

func (f LogFields) WithRevision(rev uint64) LogFields {
	f[FieldRevision] = rev
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod], f[FieldPath], f[FieldQuery] = method, path, query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

// WithHTTPResponse marks statuses below 400 as successful.
func (f LogFields) WithHTTPResponse(status int, durationMs int64) LogFields {
	f[FieldStatusCode], f[FieldDuration], f[FieldSuccess] = status, durationMs, status < 400
	return f
}

// ToSlice flattens f into slog's alternating key/value form.
func (f LogFields) ToSlice() []any {
	out := make([]any, 0, 2*len(f))
	for k, v := range f {
		out = append(out, k, v)
	}
	return out
}
