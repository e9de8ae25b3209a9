package reportstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nupdate/nupdate/internal/execshell"
	"github.com/nupdate/nupdate/internal/updates"
)

// Environment variable names configuring the blob storage upload target.
const (
	EnvStorageAccount   = "NUPDATE_STORAGE_ACCOUNT"
	EnvStorageContainer = "NUPDATE_STORAGE_CONTAINER"
	EnvStorageDirectory = "NUPDATE_STORAGE_DIRECTORY"
	EnvStorageSASToken  = "NUPDATE_STORAGE_SAS_TOKEN"
)

const (
	reportFileNameTemplateConstant       = "run-report-%s.json"
	reportTimestampLayoutConstant        = "20060102T150405Z"
	reportFilePermissionsConstant        = 0o644
	jsonIndentConstant                   = "  "
	blobURLTemplateConstant              = "https://%s.blob.core.windows.net/%s/%s"
	blobPathSeparatorConstant            = "/"
	curlSilentFlagConstant               = "-sS"
	curlFailFlagConstant                 = "--fail"
	curlMethodFlagConstant               = "-X"
	curlPutMethodConstant                = "PUT"
	curlHeaderFlagConstant               = "-H"
	curlBlobTypeHeaderConstant           = "x-ms-blob-type: BlockBlob"
	curlDataBinaryFlagConstant           = "--data-binary"
	curlFileReferencePrefixConstant      = "@"
	querySeparatorConstant               = "?"
	loggerMissingMessageConstant         = "report store logger not configured"
	curlExecutorMissingMessageConstant   = "report store curl executor not configured"
	reportEncodingErrorTemplateConstant  = "unable to encode run report: %w"
	reportWriteErrorTemplateConstant     = "unable to write run report %s: %w"
	uploadErrorTemplateConstant          = "run report upload to %s failed: %s"
	reportWrittenLogMessageConstant      = "wrote run report"
	uploadSkippedDryRunLogConstant       = "dry run: skipping run report upload"
	uploadSkippedUnconfiguredLogConstant = "blob storage not configured, keeping run report local"
	reportUploadedLogMessageConstant     = "uploaded run report"
	reportPathLogFieldNameConstant       = "report_path"
	blobURLLogFieldNameConstant          = "blob_url"
)

// Construction errors for Store.
var (
	ErrStoreLoggerMissing       = errors.New(loggerMissingMessageConstant)
	ErrStoreCurlExecutorMissing = errors.New(curlExecutorMissingMessageConstant)
)

// CurlExecutor runs curl through the shell executor.
type CurlExecutor interface {
	ExecuteCurl(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// UploadError reports a failed blob upload. The URL carries no credentials.
type UploadError struct {
	BlobURL string
	Cause   error
}

// Error describes the upload failure.
func (uploadError UploadError) Error() string {
	return fmt.Sprintf(uploadErrorTemplateConstant, uploadError.BlobURL, uploadError.Cause)
}

// Unwrap exposes the underlying cause.
func (uploadError UploadError) Unwrap() error {
	return uploadError.Cause
}

type blobSettings struct {
	account   string
	container string
	directory string
	sasToken  string
}

// Store writes run reports locally and mirrors them to blob storage.
type Store struct {
	logger            *zap.Logger
	curlExecutor      CurlExecutor
	localDirectory    string
	environmentLookup EnvironmentLookup
	clock             func() time.Time
}

// NewStore validates collaborators and constructs the report store. The local
// directory defaults to the working directory when blank.
func NewStore(logger *zap.Logger, curlExecutor CurlExecutor, localDirectory string, environmentLookup EnvironmentLookup, clock func() time.Time) (*Store, error) {
	if logger == nil {
		return nil, ErrStoreLoggerMissing
	}
	if curlExecutor == nil {
		return nil, ErrStoreCurlExecutorMissing
	}

	resolvedDirectory := strings.TrimSpace(localDirectory)
	if len(resolvedDirectory) == 0 {
		resolvedDirectory = "."
	}
	resolvedLookup := environmentLookup
	if resolvedLookup == nil {
		resolvedLookup = os.LookupEnv
	}
	resolvedClock := clock
	if resolvedClock == nil {
		resolvedClock = time.Now
	}

	return &Store{
		logger:            logger,
		curlExecutor:      curlExecutor,
		localDirectory:    resolvedDirectory,
		environmentLookup: resolvedLookup,
		clock:             resolvedClock,
	}, nil
}

// Persist writes the run report to a timestamped local file and, outside dry
// runs, uploads it to the configured blob container. The local write always
// happens before the upload attempt; an upload failure is returned as an
// UploadError and leaves the local artifact in place.
func (store *Store) Persist(executionContext context.Context, report updates.RunReport, dryRun bool) error {
	reportBytes, encodingError := json.MarshalIndent(report, "", jsonIndentConstant)
	if encodingError != nil {
		return fmt.Errorf(reportEncodingErrorTemplateConstant, encodingError)
	}

	reportFileName := fmt.Sprintf(reportFileNameTemplateConstant, store.clock().UTC().Format(reportTimestampLayoutConstant))
	reportPath := filepath.Join(store.localDirectory, reportFileName)
	if writeError := os.WriteFile(reportPath, reportBytes, reportFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, reportPath, writeError)
	}
	store.logger.Info(reportWrittenLogMessageConstant, zap.String(reportPathLogFieldNameConstant, reportPath))

	if dryRun {
		store.logger.Debug(uploadSkippedDryRunLogConstant, zap.String(reportPathLogFieldNameConstant, reportPath))
		return nil
	}

	settings, configured := store.resolveBlobSettings()
	if !configured {
		store.logger.Warn(uploadSkippedUnconfiguredLogConstant, zap.String(reportPathLogFieldNameConstant, reportPath))
		return nil
	}

	return store.upload(executionContext, settings, reportPath, reportFileName)
}

func (store *Store) resolveBlobSettings() (blobSettings, bool) {
	accountValue, accountFound := store.lookup(EnvStorageAccount)
	containerValue, containerFound := store.lookup(EnvStorageContainer)
	sasTokenValue, sasTokenFound := store.lookup(EnvStorageSASToken)
	if !accountFound || !containerFound || !sasTokenFound {
		return blobSettings{}, false
	}

	directoryValue, _ := store.lookup(EnvStorageDirectory)
	return blobSettings{
		account:   accountValue,
		container: containerValue,
		directory: directoryValue,
		sasToken:  sasTokenValue,
	}, true
}

func (store *Store) lookup(variableName string) (string, bool) {
	value, exists := store.environmentLookup(variableName)
	if !exists {
		return "", false
	}
	trimmedValue := strings.TrimSpace(value)
	return trimmedValue, len(trimmedValue) > 0
}

func (store *Store) upload(executionContext context.Context, settings blobSettings, reportPath string, reportFileName string) error {
	blobPath := reportFileName
	if len(settings.directory) > 0 {
		blobPath = settings.directory + blobPathSeparatorConstant + reportFileName
	}
	blobURL := fmt.Sprintf(blobURLTemplateConstant, settings.account, settings.container, blobPath)
	signedBlobURL := blobURL + querySeparatorConstant + settings.sasToken

	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			curlSilentFlagConstant,
			curlFailFlagConstant,
			curlMethodFlagConstant,
			curlPutMethodConstant,
			curlHeaderFlagConstant,
			curlBlobTypeHeaderConstant,
			curlDataBinaryFlagConstant,
			curlFileReferencePrefixConstant + reportPath,
			signedBlobURL,
		},
	}
	if _, uploadFailure := store.curlExecutor.ExecuteCurl(executionContext, commandDetails); uploadFailure != nil {
		return UploadError{BlobURL: blobURL, Cause: uploadFailure}
	}

	store.logger.Info(reportUploadedLogMessageConstant, zap.String(blobURLLogFieldNameConstant, blobURL))
	return nil
}
