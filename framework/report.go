package framework

// Reporter shows short status lines to the person driving a run. It is the
// user-facing counterpart of the structured log.
type Reporter interface {
	Status(msg string)
	// Warn pairs a status line with its cause; err may be nil.
	Warn(msg string, err error)
	// Show displays a titled block such as a proposed code change.
	Show(title, body string)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Status(string)       {}
func (NopReporter) Warn(string, error)  {}
func (NopReporter) Show(string, string) {}
