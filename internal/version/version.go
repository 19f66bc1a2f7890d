// Package version хранит сведения о сборке, проставляемые через -ldflags.
package version

var (
	release   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// String собирает сведения о сборке в одну строку для логов и health-ответа.
func String() string {
	return "release=" + release + " commit=" + gitCommit + " built=" + buildDate
}

// Release возвращает версию релиза без остальных полей.
func Release() string { return release }
