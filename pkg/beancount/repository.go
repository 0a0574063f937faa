package beancount

import (
	"fmt"
	"os"
	"time"

	"github.com/pigeonworks-llc/ledger-suggest/pkg/pathutil"
)

// Repository defines the interface for draft file operations.
type Repository interface {
	// AppendTransaction appends a transaction to the monthly draft file of date
	AppendTransaction(date time.Time, transaction string, comment ...string) (string, error)

	// ReadMonthFile reads the monthly draft file of date
	ReadMonthFile(date time.Time) (string, error)
}

// FileSystemRepository is a file system implementation of Repository.
type FileSystemRepository struct {
	pathResolver *pathutil.PathResolver
	now          func() time.Time
}

// NewFileSystemRepository creates a new FileSystemRepository.
func NewFileSystemRepository(pathResolver *pathutil.PathResolver) *FileSystemRepository {
	return &FileSystemRepository{
		pathResolver: pathResolver,
		now:          time.Now,
	}
}

// AppendTransaction appends a transaction to a monthly draft file and returns its path.
// It creates the file if it doesn't exist.
func (r *FileSystemRepository) AppendTransaction(date time.Time, transaction string, comment ...string) (string, error) {
	filePath, err := r.ensureMonthFile(date)
	if err != nil {
		return "", err
	}

	var content string
	if len(comment) > 0 && comment[0] != "" {
		content += fmt.Sprintf("; %s\n", comment[0])
	}
	content += transaction
	if len(transaction) > 0 && transaction[len(transaction)-1] != '\n' {
		content += "\n"
	}
	content += "\n"

	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open file for appending: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return "", fmt.Errorf("failed to write to file: %w", err)
	}

	return filePath, nil
}

// ReadMonthFile reads the content of a monthly draft file.
// Returns empty string if file doesn't exist.
func (r *FileSystemRepository) ReadMonthFile(date time.Time) (string, error) {
	filePath, err := r.pathResolver.GetDraftFilePath(date)
	if err != nil {
		return "", fmt.Errorf("failed to get draft file path: %w", err)
	}

	if !r.pathResolver.FileExists(filePath) {
		return "", nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return string(data), nil
}

// ensureMonthFile ensures a monthly file exists with header.
func (r *FileSystemRepository) ensureMonthFile(date time.Time) (string, error) {
	filePath, err := r.pathResolver.GetDraftFilePath(date)
	if err != nil {
		return "", fmt.Errorf("failed to get draft file path: %w", err)
	}

	if r.pathResolver.FileExists(filePath) {
		return filePath, nil
	}

	if err := r.pathResolver.EnsureParentDir(filePath); err != nil {
		return "", fmt.Errorf("failed to ensure parent directory: %w", err)
	}

	header := fmt.Sprintf("; Draft entries for %s\n; Generated at %s\n\n", date.Format("2006-01"), r.now().Format(time.RFC3339))
	if err := os.WriteFile(filePath, []byte(header), 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return filePath, nil
}
