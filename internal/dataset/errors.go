package dataset

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrClosed：同步器已关闭
	ErrClosed = errors.New("dataset: synchronizer closed")
	// ErrNoCurrent：尚无就绪区域
	ErrNoCurrent = errors.New("dataset: no current region")
	// ErrAlreadyExtracted：压缩包内所有条目均已存在，未写入任何文件
	ErrAlreadyExtracted = fmt.Errorf("dataset: package already extracted: %w", fs.ErrExist)
	// ErrUnsafePath：条目路径逃逸出目标目录
	ErrUnsafePath = errors.New("dataset: unsafe entry path")
	// ErrEmptyPackage：压缩包内没有任何文件
	ErrEmptyPackage = errors.New("dataset: package has no files")
)

// TransferError：区域包获取失败（网络、状态码、本地写入）
type TransferError struct {
	Region string
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("dataset: transfer %s: %v", e.Region, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// ExtractionError：区域包已获取但无法解压到磁盘
type ExtractionError struct {
	Region string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("dataset: extract %s: %v", e.Region, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
