package common

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"resumeseo/internal/errors"
	"resumeseo/internal/types"
)

// InputSource yields the resume text for one analysis
type InputSource func() (string, error)

// SampleSource returns the built-in demo resume
func SampleSource() InputSource {
	return func() (string, error) { return types.SampleResumeText, nil }
}

// FileSource reads the resume from a document on disk
func FileSource(fp *FileProcessor, filename string) InputSource {
	return func() (string, error) { return fp.ReadResume(filename) }
}

// ReaderSource reads the whole of r as resume text, e.g. stdin
func ReaderSource(r io.Reader) InputSource {
	return func() (string, error) {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "Failed to read resume from input", err)
		}
		return string(data), nil
	}
}

// InteractiveSource presents the three-option menu on out and reads the
// answers from in. Pasted text ends at the first empty line.
func InteractiveSource(in io.Reader, out io.Writer, fp *FileProcessor) InputSource {
	return func() (string, error) {
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		fmt.Fprintln(out, "🔍 Resume SEO Analyzer")
		fmt.Fprintln(out, strings.Repeat("=", 40))
		fmt.Fprint(out, "\nChoose an option:\n1. Analyze sample resume\n2. Upload your own resume (.txt, .md, .pdf or .docx file)\n3. Paste resume text\n\nEnter choice (1-3): ")

		choice, err := readLine(scanner)
		if err != nil {
			return "", err
		}

		switch strings.TrimSpace(choice) {
		case "1":
			fmt.Fprintln(out, "\nUsing sample resume...")
			return types.SampleResumeText, nil

		case "2":
			fmt.Fprint(out, "Enter the path to your resume file: ")
			path, err := readLine(scanner)
			if err != nil {
				return "", err
			}
			return fp.ReadResume(strings.TrimSpace(path))

		case "3":
			fmt.Fprintln(out, "\nPaste your resume text (press Enter twice when done):")
			var lines []string
			for scanner.Scan() {
				line := scanner.Text()
				if line == "" {
					break
				}
				lines = append(lines, line)
			}
			if err := scanner.Err(); err != nil {
				return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "Failed to read pasted resume", err)
			}
			return strings.Join(lines, "\n"), nil

		default:
			return "", errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("Invalid choice %q, expected 1, 2 or 3", strings.TrimSpace(choice)), nil)
		}
	}
}

func readLine(scanner *bufio.Scanner) (string, error) {
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "Failed to read input", err)
	}
	return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "No input provided", nil)
}
