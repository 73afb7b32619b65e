package workflow

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var pngHeader = []byte{137, 80, 78, 71, 13, 10, 26, 10}

// LoadPNG extracts the API-format prompt that ComfyUI embeds in the
// tEXt metadata of generated images and builds a Workflow from it.
// Saving such a workflow writes a .json file next to the original name.
func LoadPNG(dir string, name string) (*Workflow, error) {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	prompt, err := pngTextChunk(f, "prompt")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	jsonName := strings.TrimSuffix(name, filepath.Ext(name)) + ".json"
	return parse([]byte(prompt), dir, jsonName)
}

// pngTextChunk scans the PNG chunk stream for a tEXt chunk with the
// given keyword and returns its content.
func pngTextChunk(r io.Reader, keyword string) (string, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return "", err
	}
	if !bytes.Equal(header, pngHeader) {
		return "", errors.New("not a valid PNG file")
	}

	for {
		var length uint32
		err := binary.Read(r, binary.BigEndian, &length)
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		chunkType := make([]byte, 4)
		if _, err := io.ReadFull(r, chunkType); err != nil {
			return "", err
		}

		if string(chunkType) == "tEXt" {
			chunkData := make([]byte, length)
			if _, err := io.ReadFull(r, chunkData); err != nil {
				return "", err
			}
			keywordEnd := bytes.IndexByte(chunkData, 0)
			if keywordEnd == -1 {
				return "", errors.New("malformed tEXt chunk")
			}
			if string(chunkData[:keywordEnd]) == keyword {
				return string(chunkData[keywordEnd+1:]), nil
			}
		} else {
			if _, err := io.CopyN(io.Discard, r, int64(length)); err != nil {
				return "", err
			}
		}

		// skip the CRC
		if _, err := io.CopyN(io.Discard, r, 4); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("png has no %q metadata", keyword)
}
