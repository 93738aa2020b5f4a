package logging

import (
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

type LogCode string

const (
	// SYSTEM EVENTS (SYSTEM*)
	SYSTEM LogCode = "SYSTEM"

	// CONFIG OPERATIONS (CONFIG*)
	CONFIG_LOAD     LogCode = "CONFIG_LOAD"
	CONFIG_VALIDATE LogCode = "CONFIG_VALIDATE"

	// RUN OPERATIONS (RUN*)
	RUN_SUBMIT   LogCode = "RUN_SUBMIT"
	RUN_DISPATCH LogCode = "RUN_DISPATCH"
	RUN_STATUS   LogCode = "RUN_STATUS"
	RUN_STOP     LogCode = "RUN_STOP"
	RUN_UPLOAD   LogCode = "RUN_UPLOAD"
)

// VictoriaLogs has fixed field name for time (_time) and message(_msg). This function maps fields msg -> _msg and time -> _time.
func convertKeysToVictoriaLogs(keys []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{Key: "_time", Value: slog.StringValue(a.Value.Time().Format("2006-01-02 15:04:05"))}
	}
	if a.Key == slog.MessageKey {
		return slog.Attr{Key: "_msg", Value: a.Value}
	}
	return a
}

func GetVictoriaLogsOptions(addSource bool) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		ReplaceAttr: convertKeysToVictoriaLogs,
		AddSource:   addSource,
	}
}

// InitLogging fans logs out to a json log file for ingestion and a readable
// text stream on stderr, and installs the logger as the slog default.
func InitLogging(logFile *os.File, serviceType string) {
	var jsonHandler slog.Handler = slog.NewJSONHandler(logFile, GetVictoriaLogsOptions(true))

	// these fields will be used for filtering logs
	jsonHandler = jsonHandler.WithAttrs([]slog.Attr{
		slog.String("service_type", serviceType),
	})
	textHandler := slog.NewTextHandler(os.Stderr, nil)

	logger := slog.New(slogmulti.Fanout(jsonHandler, textHandler))
	slog.SetDefault(logger)
}
