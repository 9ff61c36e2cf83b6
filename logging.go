package cel

import "go.uber.org/zap"

// This library logs nothing by default -- it is a pure, synchronous
// evaluator (spec.md 5) and an embedder should not see log lines just for
// linking the package. SetLogger lets a host application plug in its own
// zap logger, in the spirit of the teacher's zap.ReplaceGlobals singleton
// (stacklok-toolhive-core's logger.InitializeWithOptions), scoped to this
// package instead of process-global. Only Debug-level tracing is emitted:
// one line per Compile, plus one per parse or evaluation failure
// (program.go). Macro iteration and successful evaluations are not logged.
var log = zap.NewNop().Sugar()

// SetLogger installs l as this package's logger. Passing nil restores the
// no-op default.
func SetLogger(l *zap.SugaredLogger) {
	if l == nil {
		log = zap.NewNop().Sugar()
		return
	}
	log = l
}

func logger() *zap.SugaredLogger {
	return log
}
