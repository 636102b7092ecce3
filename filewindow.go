package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// filewindow.go - 文件窗口：只把光标附近的三个块留在内存里

const defaultChunkSize int64 = 1024

var (
	// ErrNotResident 请求的偏移量不在当前驻留窗口内
	ErrNotResident = errors.New("offset not resident")
	// ErrOutOfBounds 偏移量超出文件大小
	ErrOutOfBounds = errors.New("offset out of bounds")
)

// FileAccessError 启动时无法打开文件
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("cannot open %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// FileWindow 管理磁盘文件到内存字节区间 (chunk) 的映射。
// 所有字段由 mu 保护；后台监视协程和 UI 循环都会访问它。
type FileWindow struct {
	mu sync.Mutex

	path      string
	size      int64
	offset    int64  // 驻留窗口的绝对起始偏移
	data      []byte // 驻留字节，长度 <= 3*chunkSize
	chunkSize int64
	anchor    int64 // 最近一次加载的目标，强制重载时围绕它读取
	closed    bool

	loads int // 从磁盘加载窗口的次数
}

// OpenFileWindow 打开文件并加载第 0 块
func OpenFileWindow(path string) (*FileWindow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileAccessError{Path: path, Err: err}
	}
	info, err := f.Stat()
	f.Close()
	if err != nil {
		return nil, &FileAccessError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &FileAccessError{Path: path, Err: errors.New("is a directory")}
	}

	w := &FileWindow{
		path:      path,
		size:      info.Size(),
		chunkSize: defaultChunkSize,
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.loadLocked(0); err != nil {
		return nil, &FileAccessError{Path: path, Err: err}
	}
	return w, nil
}

// Path 返回文件路径
func (w *FileWindow) Path() string { return w.path }

// Size 返回最近一次采样的文件大小
func (w *FileWindow) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Offset 返回驻留窗口起点
func (w *FileWindow) Offset() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.offset
}

// Len 返回驻留字节数
func (w *FileWindow) Len() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return int64(len(w.data))
}

// ChunkSize 返回当前块大小
func (w *FileWindow) ChunkSize() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chunkSize
}

// Resident 只探测，不做 I/O
func (w *FileWindow) Resident(off int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.residentLocked(off)
}

func (w *FileWindow) residentLocked(off int64) bool {
	return off >= w.offset && off < w.offset+int64(len(w.data))
}

// ByteAt 返回驻留窗口中的字节；不在窗口内时返回 ErrNotResident
func (w *FileWindow) ByteAt(off int64) (byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.residentLocked(off) {
		return 0, ErrNotResident
	}
	return w.data[off-w.offset], nil
}

// SetChunkSize 修改块粒度，下一次加载时生效
func (w *FileWindow) SetChunkSize(n int64) {
	if n < 1 {
		n = 1
	}
	w.mu.Lock()
	w.chunkSize = n
	w.mu.Unlock()
}

// EnsureResident 保证 off 驻留；已驻留或越界时什么都不做
func (w *FileWindow) EnsureResident(off int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if off < 0 || off >= w.size || w.residentLocked(off) {
		return nil
	}
	w.anchor = off
	return w.loadLocked(off / w.chunkSize)
}

// EnsureRange 保证 [start, end) 整段驻留（裁剪到文件大小）。
// 不完全驻留时围绕区间中点加载：只要区间不超过两个块，三块窗口就能覆盖它。
func (w *FileWindow) EnsureRange(start, end int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if start < 0 {
		start = 0
	}
	if end > w.size {
		end = w.size
	}
	if start >= end {
		return nil
	}
	if w.residentLocked(start) && w.residentLocked(end-1) {
		return nil
	}
	mid := start + (end-start)/2
	w.anchor = mid
	return w.loadLocked(mid / w.chunkSize)
}

// Peek 返回 off 起最多 n 个字节，不移动驻留窗口。
// 不在窗口内的部分直接从磁盘读取；文件被截断时返回短结果。
func (w *FileWindow) Peek(off int64, n int) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if off < 0 || off >= w.size {
		return nil, ErrOutOfBounds
	}
	if n < 1 {
		return nil, nil
	}
	end := off + int64(n)
	if end > w.size || end < off {
		end = w.size
	}
	if w.residentLocked(off) && w.residentLocked(end-1) {
		return append([]byte(nil), w.data[off-w.offset:end-w.offset]...), nil
	}
	if w.closed {
		return nil, ErrNotResident
	}

	f, err := os.Open(w.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", w.path, err)
	}
	defer f.Close()
	buf := make([]byte, end-off)
	read, err := f.ReadAt(buf, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return buf[:read], fmt.Errorf("read %s at %d: %w", w.path, off, err)
	}
	return buf[:read], nil
}

// loadCount 窗口加载次数
func (w *FileWindow) loadCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loads
}

// ReloadForced 无条件重新读取锚点附近的窗口，同时刷新文件大小
func (w *FileWindow) ReloadForced() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	info, err := os.Stat(w.path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", w.path, err)
	}
	w.size = info.Size()

	anchor := w.anchor
	if anchor >= w.size {
		anchor = w.size - 1
	}
	if anchor < 0 {
		anchor = 0
	}
	w.anchor = anchor
	return w.loadLocked(anchor / w.chunkSize)
}

// Close 释放缓冲区；之后的加载都是空操作
func (w *FileWindow) Close() {
	w.mu.Lock()
	w.closed = true
	w.data = nil
	w.mu.Unlock()
}

// loadLocked 读取 [chunk-1, chunk+1] 三个块，裁剪到 [0, size)。
// 调用者必须持有 mu。
func (w *FileWindow) loadLocked(chunk int64) error {
	if w.closed {
		return nil
	}
	first := chunk - 1
	if first < 0 {
		first = 0
	}
	start := first * w.chunkSize
	end := (chunk + 2) * w.chunkSize
	if end > w.size || end < 0 {
		end = w.size
	}
	if start >= end {
		// 空文件或越界：窗口为空
		w.offset = start
		if start > w.size {
			w.offset = w.size
		}
		w.data = w.data[:0]
		return nil
	}

	f, err := os.Open(w.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", w.path, err)
	}
	defer f.Close()

	n := end - start
	if int64(cap(w.data)) < n {
		w.data = make([]byte, n)
	}
	w.data = w.data[:n]
	read, err := f.ReadAt(w.data, start)
	if err != nil && !errors.Is(err, io.EOF) {
		w.data = w.data[:0]
		w.offset = start
		return fmt.Errorf("read %s at %d: %w", w.path, start, err)
	}
	// 文件被并发截断时接受短读
	w.data = w.data[:read]
	w.offset = start
	w.loads++
	log.Printf("filewindow: loaded chunk %d [%d, %d) size=%d chunk=%d", chunk, start, start+int64(read), w.size, w.chunkSize)
	return nil
}
