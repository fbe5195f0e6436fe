package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/ppiankov/faultline/internal/model"
)

// Size limits for local inputs
const (
	MaxTextBytes  = 1 << 20
	MaxImageBytes = 10 << 20
)

// ErrEmptyInput is returned when neither text nor an image was given
var ErrEmptyInput = errors.New("no text or image to analyze")

// Input is the material one run analyzes
type Input struct {
	Text   string       `json:"text,omitempty"`
	Image  *model.Image `json:"image,omitempty"`
	Mode   string       `json:"mode,omitempty"`
	Source string       `json:"source,omitempty"` // Where the input came from, for reports
}

// Validate checks that there is something to analyze
func (in Input) Validate() error {
	if strings.TrimSpace(in.Text) == "" && (in.Image == nil || len(in.Image.Data) == 0) {
		return ErrEmptyInput
	}
	return nil
}

// Sources of an analysis input
type InputOptions struct {
	Text      string
	File      string // "-" reads stdin
	URL       string
	ImagePath string
	Mode      string
}

// LoadInput assembles an Input from the given options. A URL is fetched
// with f; text from several options is concatenated.
func LoadInput(ctx context.Context, f *Fetcher, opts InputOptions, stdin io.Reader) (Input, error) {
	in := Input{Mode: opts.Mode}
	var parts, sources []string

	if opts.Text != "" {
		parts = append(parts, opts.Text)
		sources = append(sources, "text")
	}

	if opts.File != "" {
		var (
			text string
			err  error
		)
		if opts.File == "-" {
			text, err = ReadText(stdin)
		} else {
			text, err = ReadTextFile(opts.File)
		}
		if err != nil {
			return Input{}, err
		}
		parts = append(parts, text)
		sources = append(sources, opts.File)
	}

	if opts.URL != "" {
		if f == nil {
			return Input{}, fmt.Errorf("no fetcher for %s", opts.URL)
		}
		result, err := f.Fetch(ctx, opts.URL)
		if err != nil {
			return Input{}, fmt.Errorf("fetch %s: %w", opts.URL, err)
		}
		parts = append(parts, result.Document.Text)
		sources = append(sources, result.FinalURL)
	}

	if opts.ImagePath != "" {
		img, err := LoadImage(opts.ImagePath)
		if err != nil {
			return Input{}, err
		}
		in.Image = img
		sources = append(sources, opts.ImagePath)
	}

	in.Text = strings.TrimSpace(strings.Join(parts, "\n\n"))
	in.Source = strings.Join(sources, ", ")

	if err := in.Validate(); err != nil {
		return Input{}, err
	}
	return in, nil
}

// ReadText reads at most MaxTextBytes of text from r
func ReadText(r io.Reader) (string, error) {
	if r == nil {
		return "", fmt.Errorf("read text: no reader")
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxTextBytes))
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ReadTextFile reads a plain-text input file
func ReadTextFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	return ReadText(file)
}

// LoadImage reads an image file and sniffs its MIME type
func LoadImage(path string) (*model.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("%s: image larger than %d bytes", path, MaxImageBytes)
	}

	return DecodeImage(data)
}

// DecodeImage wraps raw image bytes, rejecting anything that is not an image
func DecodeImage(data []byte) (*model.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("unsupported image type %q", mimeType)
	}
	return &model.Image{Data: data, MIMEType: mimeType}, nil
}
