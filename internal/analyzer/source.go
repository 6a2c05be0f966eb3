package analyzer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoText is returned when no extracted text exists for a review.
var ErrNoText = errors.New("no extracted text")

// TextSource yields the extracted text of a review document.
type TextSource interface {
	Text(ctx context.Context, reviewID string) (string, error)
}

// FileTextSource reads pre-extracted UTF-8 text from <Dir>/<reviewID>.txt.
type FileTextSource struct {
	Dir string
}

// Path returns the text file location for a review.
func (f FileTextSource) Path(reviewID string) string {
	return filepath.Join(f.Dir, reviewID+".txt")
}

func (f FileTextSource) Text(ctx context.Context, reviewID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if reviewID == "" || strings.ContainsAny(reviewID, `/\`) {
		return "", fmt.Errorf("invalid review id: %q", reviewID)
	}
	data, err := os.ReadFile(f.Path(reviewID))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w for review %s", ErrNoText, reviewID)
	}
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%w for review %s", ErrNoText, reviewID)
	}
	return text, nil
}
