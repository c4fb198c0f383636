package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type selectionFile struct {
	Region  string    `json:"region"`
	SavedAt time.Time `json:"saved_at"`
}

// File：JSON 文件后端，写入经临时文件 + rename 保证原子
type File struct {
	path string
}

func NewFile(path string) *File { return &File{path: path} }

func (f *File) LoadSelection(_ context.Context) (string, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNoSelection
		}
		return "", err
	}
	var v selectionFile
	if err := json.Unmarshal(b, &v); err != nil {
		return "", err
	}
	if strings.TrimSpace(v.Region) == "" {
		return "", ErrNoSelection
	}
	return v.Region, nil
}

func (f *File) SaveSelection(_ context.Context, id string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(selectionFile{Region: id, SavedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
