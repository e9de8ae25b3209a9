package execshell

// CommandEventObserver receives lifecycle notifications as external commands
// run, letting the CLI surface progress without coupling execution to output.
type CommandEventObserver interface {
	// CommandStarted fires immediately before the process is spawned.
	CommandStarted(command ShellCommand)
	// CommandCompleted fires once the process ran, whatever its exit code.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed fires when the process never produced a result.
	CommandExecutionFailed(command ShellCommand, failure error)
}

// noopCommandEventObserver stands in when no observer was supplied.
type noopCommandEventObserver struct{}

func (noopCommandEventObserver) CommandStarted(ShellCommand)                    {}
func (noopCommandEventObserver) CommandCompleted(ShellCommand, ExecutionResult) {}
func (noopCommandEventObserver) CommandExecutionFailed(ShellCommand, error)     {}
