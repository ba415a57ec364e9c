package pipeline

// Printers bundles the styled output callbacks the CLI layer injects into
// every stage, keeping lipgloss out of the pipeline logic itself.
type Printers struct {
	Step     func(int, string)
	Progress func(string)
	Success  func(string)
	Error    func(string)
	Info     func(string)
	Warning  func(string)
}

// DiscardPrinters returns printers that drop everything. Used by tests.
func DiscardPrinters() Printers {
	return Printers{
		Step:     func(int, string) {},
		Progress: func(string) {},
		Success:  func(string) {},
		Error:    func(string) {},
		Info:     func(string) {},
		Warning:  func(string) {},
	}
}
