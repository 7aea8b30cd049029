package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileToolOption configures the workspace file tools.
type FileToolOption func(*fileToolConfig)

type fileToolConfig struct {
	root        string
	maxFileSize int64
}

// WithMaxFileSize sets the maximum file size for read/write operations.
// Default is 10MB.
func WithMaxFileSize(bytes int64) FileToolOption {
	return func(c *fileToolConfig) {
		c.maxFileSize = bytes
	}
}

func applyFileOpts(root string, opts []FileToolOption) *fileToolConfig {
	cfg := &fileToolConfig{
		root:        root,
		maxFileSize: 10 * 1024 * 1024, // 10MB default
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// resolve joins the path with the workspace root and rejects escapes.
func (c *fileToolConfig) resolve(path string) (string, error) {
	root := filepath.Clean(c.root)
	full := filepath.Join(root, filepath.Clean(path))

	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside the workspace", path)
	}
	return full, nil
}

// readFileArgs defines arguments for the read file tool.
type readFileArgs struct {
	Path string `json:"path" desc:"Workspace-relative path of the file to read" required:"true"`
}

// ReadFile returns a tool that reads file contents from the workspace.
func ReadFile(root string, opts ...FileToolOption) Registration {
	cfg := applyFileOpts(root, opts)

	handler := func(ctx context.Context, args readFileArgs) (string, error) {
		path, err := cfg.resolve(args.Path)
		if err != nil {
			return "", err
		}

		info, err := os.Stat(path)
		if err != nil {
			return "", err
		}
		if info.Size() > cfg.maxFileSize {
			return "", fmt.Errorf("file size %d exceeds maximum %d", info.Size(), cfg.maxFileSize)
		}

		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()

		content, err := io.ReadAll(io.LimitReader(f, cfg.maxFileSize))
		if err != nil {
			return "", err
		}
		return string(content), nil
	}

	return Func("read_file", "Read the contents of a file in the workspace", handler)
}

// writeFileArgs defines arguments for the write file tool.
type writeFileArgs struct {
	Path    string `json:"path" desc:"Workspace-relative path of the file to write" required:"true"`
	Content string `json:"content" desc:"Content to write to the file" required:"true"`
}

// WriteFile returns a tool that writes file contents inside the workspace.
// The tool is approval-gated: every write must be confirmed.
func WriteFile(root string, opts ...FileToolOption) Registration {
	cfg := applyFileOpts(root, opts)

	handler := func(ctx context.Context, args writeFileArgs) (string, error) {
		path, err := cfg.resolve(args.Path)
		if err != nil {
			return "", err
		}

		if int64(len(args.Content)) > cfg.maxFileSize {
			return "", fmt.Errorf("content size %d exceeds maximum %d", len(args.Content), cfg.maxFileSize)
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(path, []byte(args.Content), 0o644); err != nil {
			return "", err
		}

		out, err := json.Marshal(struct {
			Path         string `json:"path"`
			BytesWritten int    `json:"bytes_written"`
		}{
			Path:         args.Path,
			BytesWritten: len(args.Content),
		})
		if err != nil {
			return "", err
		}
		return string(out), nil
	}

	return GatedFunc("write_file", "Write content to a file in the workspace", handler)
}

// listDirArgs defines arguments for the list directory tool.
type listDirArgs struct {
	Path string `json:"path" desc:"Workspace-relative directory to list" required:"true"`
}

// dirEntry is a single entry in a list_dir result.
type dirEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size,omitempty"`
}

// ListDir returns a tool that lists directory contents in the workspace.
func ListDir(root string, opts ...FileToolOption) Registration {
	cfg := applyFileOpts(root, opts)

	handler := func(ctx context.Context, args listDirArgs) (string, error) {
		path, err := cfg.resolve(args.Path)
		if err != nil {
			return "", err
		}

		dirEntries, err := os.ReadDir(path)
		if err != nil {
			return "", err
		}

		entries := make([]dirEntry, 0, len(dirEntries))
		for _, de := range dirEntries {
			e := dirEntry{
				Name:  de.Name(),
				IsDir: de.IsDir(),
			}
			if !de.IsDir() {
				if info, err := de.Info(); err == nil {
					e.Size = info.Size()
				}
			}
			entries = append(entries, e)
		}

		out, err := json.Marshal(struct {
			Path    string     `json:"path"`
			Count   int        `json:"count"`
			Entries []dirEntry `json:"entries"`
		}{
			Path:    args.Path,
			Count:   len(entries),
			Entries: entries,
		})
		if err != nil {
			return "", err
		}
		return string(out), nil
	}

	return Func("list_dir", "List the contents of a workspace directory", handler)
}

// FileTools returns the read, write, and list directory tools rooted at
// the given workspace directory. write_file is approval-gated.
func FileTools(root string, opts ...FileToolOption) []Registration {
	return []Registration{
		ReadFile(root, opts...),
		WriteFile(root, opts...),
		ListDir(root, opts...),
	}
}
