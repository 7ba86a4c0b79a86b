package config

import (
	"errors"
	"fmt"
	"os"
)

// File is the contents of a KEY=VALUE configuration file.
//
// A '#' directly after a newline comments out that line. A value ending in
// '|' just before "\n" or "\r\n" continues on the next line; the '|' and the
// line break are dropped. Any other '\r' is ignored, so files mixing line
// ending styles read as if they used "\n" throughout. Only the first '=' on
// a line separates the key from its value.
type File struct {
	// Path is where the file was read from.
	Path string
	// content is the raw file body.
	content []byte
}

// LoadFile reads a config file. A missing file yields an empty File.
func LoadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &File{Path: path}, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return &File{Path: path, content: raw}, nil
}

// ParseFile wraps in-memory content as a File.
func ParseFile(content []byte) *File {
	return &File{content: content}
}

// Lookup returns the value of the first entry whose key equals key.
func (f *File) Lookup(key string) (string, bool) {
	if f == nil {
		return "", false
	}
	content := f.content

	var (
		part       []byte
		equalsSeen bool
		keyFound   bool
		skipLine   bool
	)
	for i := 0; i < len(content); i++ {
		ch := content[i]
		if ch == '\r' {
			continue
		}

		if ch == '\n' {
			if keyFound {
				break
			}
			part = part[:0]
			equalsSeen = false
			skipLine = i+1 < len(content) && content[i+1] == '#'
			continue
		}

		if skipLine {
			continue
		}

		if ch == '=' && !equalsSeen {
			equalsSeen = true
			keyFound = string(part) == key
			part = part[:0]
			continue
		}

		if ch == '|' && equalsSeen && continuesLine(content, i) {
			i++
			if content[i] == '\r' {
				i++
			}
			continue
		}

		// Values of other keys are not collected.
		if equalsSeen && !keyFound {
			continue
		}

		part = append(part, ch)
	}

	if !keyFound {
		return "", false
	}
	return string(part), true
}

// continuesLine reports whether the '|' at i is directly followed by a line break.
func continuesLine(content []byte, i int) bool {
	if i+1 < len(content) && content[i+1] == '\n' {
		return true
	}
	return i+2 < len(content) && content[i+1] == '\r' && content[i+2] == '\n'
}
