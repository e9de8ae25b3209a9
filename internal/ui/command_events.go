package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/nupdate/nupdate/internal/execshell"
)

const (
	commandStartedLineTemplateConstant   = "Running %s\n"
	commandCompletedLineTemplateConstant = "Completed %s\n"
	commandFailedLineTemplateConstant    = "%s failed with exit code %d%s\n"
	commandExecutionLineTemplateConstant = "%s failed: %s\n"
	workingDirectorySuffixConstant       = " (in %s)"
	standardErrorSuffixConstant          = ": %s"
	argumentsJoinSeparatorConstant       = " "
	unknownFailureMessageConstant        = "unknown error"
)

// CommandEventWriter emits operator-facing progress lines for command lifecycle events.
type CommandEventWriter struct {
	outputWriter io.Writer
	errorWriter  io.Writer
	mutex        sync.Mutex
}

// NewCommandEventWriter constructs a CommandEventWriter targeting the provided streams.
func NewCommandEventWriter(outputWriter io.Writer, errorWriter io.Writer) *CommandEventWriter {
	return &CommandEventWriter{outputWriter: outputWriter, errorWriter: errorWriter}
}

// CommandStarted prints a line announcing a command about to run.
func (eventWriter *CommandEventWriter) CommandStarted(command execshell.ShellCommand) {
	eventWriter.writeLine(eventWriter.outputWriter, fmt.Sprintf(commandStartedLineTemplateConstant, formatCommandLabel(command)))
}

// CommandCompleted prints a completion or failure line depending on the exit code.
func (eventWriter *CommandEventWriter) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if result.ExitCode == 0 {
		eventWriter.writeLine(eventWriter.outputWriter, fmt.Sprintf(commandCompletedLineTemplateConstant, formatCommandLabel(command)))
		return
	}

	standardErrorSuffix := ""
	trimmedStandardError := strings.TrimSpace(result.StandardError)
	if len(trimmedStandardError) > 0 {
		standardErrorSuffix = fmt.Sprintf(standardErrorSuffixConstant, trimmedStandardError)
	}
	eventWriter.writeLine(eventWriter.errorWriter, fmt.Sprintf(commandFailedLineTemplateConstant, formatCommandLabel(command), result.ExitCode, standardErrorSuffix))
}

// CommandExecutionFailed prints a line describing an unexpected execution failure.
func (eventWriter *CommandEventWriter) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	failureMessage := unknownFailureMessageConstant
	if failure != nil {
		failureMessage = failure.Error()
	}
	eventWriter.writeLine(eventWriter.errorWriter, fmt.Sprintf(commandExecutionLineTemplateConstant, formatCommandLabel(command), failureMessage))
}

func (eventWriter *CommandEventWriter) writeLine(targetWriter io.Writer, line string) {
	if targetWriter == nil {
		return
	}
	eventWriter.mutex.Lock()
	defer eventWriter.mutex.Unlock()
	fmt.Fprint(targetWriter, line)
}

func formatCommandLabel(command execshell.ShellCommand) string {
	commandParts := []string{string(command.Name)}
	if len(command.Details.Arguments) > 0 {
		commandParts = append(commandParts, strings.Join(command.Details.Arguments, argumentsJoinSeparatorConstant))
	}
	commandLabel := strings.Join(commandParts, argumentsJoinSeparatorConstant)

	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) > 0 {
		commandLabel += fmt.Sprintf(workingDirectorySuffixConstant, trimmedWorkingDirectory)
	}
	return commandLabel
}
