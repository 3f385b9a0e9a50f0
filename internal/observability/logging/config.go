package logging

// Output formats. Pretty is the human default; jsonl emits one
// structured event per line for log shippers.
const (
	FormatPretty = "pretty"
	FormatJSONL  = "jsonl"
)

// Config comes from GUARDRAIL_LOG_* in main.
type Config struct {
	Format string
	Level  string
	Output string
}

func DefaultConfig() Config {
	return Config{
		Format: FormatPretty,
		Level:  LevelInfo,
		Output: "stderr",
	}
}

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// levelPriority orders levels for filtering. Unknown levels read as
// info.
func levelPriority(level string) int {
	switch level {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 1
	}
}
