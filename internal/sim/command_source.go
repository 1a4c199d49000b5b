package sim

// CommandSource is implemented by writers that let the operator issue
// commands, such as the terminal UI. The simulator hands them its Submit.
type CommandSource interface {
	SetCommander(func(Command) bool)
}
